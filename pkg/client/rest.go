package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"iptv-live/pkg/events"
)

const DefaultTimeout = 15 * time.Second

var ErrTimedOut = errors.New("request timed out")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// REST is the HTTP fallback used when the socket cannot resolve an id in
// time, such as when opening a conversation.
type REST struct {
	baseURL string
	token   string
	http    *http.Client
	timeout time.Duration
}

type RESTOption func(*REST)

func WithTimeout(d time.Duration) RESTOption {
	return func(r *REST) { r.timeout = d }
}

func WithHTTPClient(c *http.Client) RESTOption {
	return func(r *REST) { r.http = c }
}

func NewREST(baseURL, token string, opts ...RESTOption) *REST {
	r := &REST{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *REST) CreateConversation(ctx context.Context, subject string) (*Conversation, error) {
	var conv Conversation
	if err := r.do(ctx, http.MethodPost, "/api/conversations", events.NewConversation{Subject: subject}, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *REST) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	var batch struct {
		Messages []Message `json:"messages"`
	}
	path := "/api/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := r.do(ctx, http.MethodGet, path, nil, &batch); err != nil {
		return nil, err
	}
	return batch.Messages, nil
}

func (r *REST) Notifications(ctx context.Context) (Payload, error) {
	var raw json.RawMessage
	if err := r.do(ctx, http.MethodGet, "/api/notifications", nil, &raw); err != nil {
		return emptyPayload(), err
	}
	return ParsePayload(raw), nil
}

func (r *REST) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s %s: %w", method, path, ErrTimedOut)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s %s: %w", method, path, ErrTimedOut)
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
