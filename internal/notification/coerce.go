package notification

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const dateLayout = "January 2, 2006"

var dateInputLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Str turns v into display text. Nil, maps, slices, structs and pointers
// yield fallback so no composite value is ever rendered.
func Str(v any, fallback string) string {
	switch x := v.(type) {
	case nil:
		return fallback
	case string:
		if s := strings.TrimSpace(x); s != "" {
			return s
		}
		return fallback
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case json.Number:
		return x.String()
	case time.Time:
		return FormatDate(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return Str(rv.String(), fallback)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	default:
		return fallback
	}
}

// FormatDate renders time values and date strings in one layout, or "N/A".
func FormatDate(v any) string {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return "N/A"
		}
		return x.Format(dateLayout)
	case *time.Time:
		if x == nil {
			return "N/A"
		}
		return FormatDate(*x)
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range dateInputLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(dateLayout)
			}
		}
	}
	return "N/A"
}

// Label turns identifiers such as "active_trial" into "Active Trial".
func Label(v any) string {
	s := Str(v, "")
	if s == "" {
		return ""
	}
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return cases.Title(language.English).String(s)
}

func has(d Data, key string) bool {
	return Str(d[key], "") != ""
}

func field(d Data, key, fallback string) string {
	return Str(d[key], fallback)
}

// line returns text only when every key is present in d.
func line(d Data, text string, keys ...string) string {
	for _, k := range keys {
		if !has(d, k) {
			return ""
		}
	}
	return text
}

func joinLines(lines ...string) string {
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
