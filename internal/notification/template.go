package notification

import (
	"fmt"
	"net/url"
	"strings"
)

type templateFunc func(d Data) Content

// GetTemplate renders the notification for one audience. eventKey selects a
// lifecycle variant ("created" -> freeTrial_created) and falls back to the
// plain type, then to a generic template.
func GetTemplate(audience Audience, t Type, eventKey string, d Data) Content {
	if d == nil {
		d = Data{}
	}
	table := userTemplates
	if audience == AudienceAdmin {
		table = adminTemplates
	}
	if eventKey != "" {
		if fn, ok := table[string(t)+"_"+eventKey]; ok {
			return fn(d)
		}
	}
	if fn, ok := table[string(t)]; ok {
		return fn(d)
	}
	return genericTemplate(audience, d)
}

func genericTemplate(audience Audience, d Data) Content {
	link := "/dashboard/notifications"
	if audience == AudienceAdmin {
		link = "/admin/notifications"
	}
	return Content{
		Title: field(d, "title", "🔔 New Notification"),
		Body:  field(d, "message", "You have a new notification."),
		Link:  link,
	}
}

func withID(base string, d Data, key string) string {
	if !has(d, key) {
		return base
	}
	return base + "/" + url.PathEscape(field(d, key, ""))
}

func amount(d Data) string {
	return strings.TrimSpace(field(d, "amount", "") + " " + field(d, "currency", ""))
}

func greeting(d Data) string {
	return fmt.Sprintf("Hi %s!", field(d, "name", "there"))
}

var adminTemplates = map[string]templateFunc{
	"newUserRegistration": func(d Data) Content {
		return Content{
			Title: "👤 New User Registration",
			Body: joinLines(
				"A new user has registered.",
				line(d, fmt.Sprintf("Name: %s", field(d, "name", "")), "name"),
				line(d, fmt.Sprintf("Email: %s", field(d, "email", "")), "email"),
				fmt.Sprintf("Registered: %s", FormatDate(d["created_at"])),
			),
			Link: withID("/admin/users", d, "user_id"),
		}
	},
	"freeTrial": func(d Data) Content {
		return Content{
			Title: "🎁 Free Trial Updated",
			Body: joinLines(
				fmt.Sprintf("The free trial of %s was updated.", field(d, "name", "a user")),
				line(d, fmt.Sprintf("Email: %s", field(d, "email", "")), "email"),
				line(d, fmt.Sprintf("Status: %s", Label(d["status"])), "status"),
				line(d, fmt.Sprintf("Expires: %s", FormatDate(d["expires_at"])), "expires_at"),
			),
			Link: "/admin/free-trials",
		}
	},
	"freeTrial_created": func(d Data) Content {
		return Content{
			Title: "🎁 New Free Trial Request",
			Body: joinLines(
				fmt.Sprintf("%s requested a free trial.", field(d, "name", "A user")),
				line(d, fmt.Sprintf("Email: %s", field(d, "email", "")), "email"),
				line(d, fmt.Sprintf("Device: %s", field(d, "device", "")), "device"),
				line(d, fmt.Sprintf("Application: %s", field(d, "app", "")), "app"),
				fmt.Sprintf("Requested: %s", FormatDate(d["created_at"])),
			),
			Link: "/admin/free-trials",
		}
	},
	"subscription": func(d Data) Content {
		return Content{
			Title: "📺 Subscription Updated",
			Body: joinLines(
				fmt.Sprintf("The subscription of %s was updated.", field(d, "name", "a user")),
				line(d, fmt.Sprintf("Plan: %s", Label(d["plan"])), "plan"),
				line(d, fmt.Sprintf("Status: %s", Label(d["status"])), "status"),
				line(d, fmt.Sprintf("Ends: %s", FormatDate(d["end_date"])), "end_date"),
			),
			Link: "/admin/subscriptions",
		}
	},
	"subscription_created": func(d Data) Content {
		return Content{
			Title: "📺 New Subscription",
			Body: joinLines(
				fmt.Sprintf("%s subscribed.", field(d, "name", "A user")),
				line(d, fmt.Sprintf("Email: %s", field(d, "email", "")), "email"),
				line(d, fmt.Sprintf("Plan: %s", Label(d["plan"])), "plan"),
				line(d, fmt.Sprintf("Duration: %s months", field(d, "duration", "")), "duration"),
				line(d, fmt.Sprintf("Connections: %s", field(d, "connections", "")), "connections"),
				line(d, fmt.Sprintf("Amount: %s", field(d, "amount", "")), "amount"),
				fmt.Sprintf("Start: %s", FormatDate(d["start_date"])),
			),
			Link: "/admin/subscriptions",
		}
	},
	"payment": func(d Data) Content {
		return Content{
			Title: "💳 Payment Updated",
			Body: joinLines(
				fmt.Sprintf("A payment from %s was updated.", field(d, "name", "a user")),
				line(d, "Amount: "+amount(d), "amount"),
				line(d, fmt.Sprintf("Status: %s", Label(d["status"])), "status"),
				line(d, fmt.Sprintf("Reference: %s", field(d, "reference", "")), "reference"),
			),
			Link: "/admin/payments",
		}
	},
	"payment_created": func(d Data) Content {
		return Content{
			Title: "💳 New Payment Received",
			Body: joinLines(
				fmt.Sprintf("%s submitted a payment.", field(d, "name", "A user")),
				line(d, fmt.Sprintf("Email: %s", field(d, "email", "")), "email"),
				line(d, "Amount: "+amount(d), "amount"),
				line(d, fmt.Sprintf("Method: %s", Label(d["method"])), "method"),
				line(d, fmt.Sprintf("Reference: %s", field(d, "reference", "")), "reference"),
				fmt.Sprintf("Date: %s", FormatDate(d["created_at"])),
			),
			Link: "/admin/payments",
		}
	},
	"liveChatMessage": func(d Data) Content {
		return Content{
			Title: "💬 New Live Chat Message",
			Body: joinLines(
				fmt.Sprintf("From: %s", field(d, "name", "A user")),
				line(d, fmt.Sprintf("Subject: %s", field(d, "subject", "")), "subject"),
				line(d, fmt.Sprintf("Message: %s", field(d, "message", "")), "message"),
			),
			Link: withID("/admin/live-chat", d, "conversation_id"),
		}
	},
	"liveChatMessage_created": func(d Data) Content {
		return Content{
			Title: "💬 New Live Chat Conversation",
			Body: joinLines(
				fmt.Sprintf("%s opened a support conversation.", field(d, "name", "A user")),
				line(d, fmt.Sprintf("Subject: %s", field(d, "subject", "")), "subject"),
				fmt.Sprintf("Opened: %s", FormatDate(d["created_at"])),
			),
			Link: withID("/admin/live-chat", d, "conversation_id"),
		}
	},
	"bubbleChatMessage": func(d Data) Content {
		return Content{
			Title: "🫧 New Chat Bubble Message",
			Body: joinLines(
				fmt.Sprintf("From: %s", field(d, "name", "A visitor")),
				line(d, fmt.Sprintf("Email: %s", field(d, "email", "")), "email"),
				line(d, fmt.Sprintf("Message: %s", field(d, "message", "")), "message"),
			),
			Link: "/admin/live-chat",
		}
	},
	"error": func(d Data) Content {
		return Content{
			Title: "⚠️ System Error",
			Body: joinLines(
				field(d, "message", "An unexpected error occurred."),
				line(d, fmt.Sprintf("Context: %s", field(d, "context", "")), "context"),
				line(d, fmt.Sprintf("User: %s", field(d, "name", "")), "name"),
				fmt.Sprintf("When: %s", FormatDate(d["created_at"])),
			),
			Link: "/admin/activity-logs",
		}
	},
}

var userTemplates = map[string]templateFunc{
	"newUserRegistration": func(d Data) Content {
		return Content{
			Title: "👋 Welcome Aboard!",
			Body: joinLines(
				greeting(d),
				"Your account has been created successfully.",
				"You can now request a free trial or choose a subscription plan.",
			),
			Link: "/dashboard",
		}
	},
	"freeTrial": func(d Data) Content {
		return Content{
			Title: "🎁 Free Trial Update",
			Body: joinLines(
				greeting(d),
				"Your free trial has been updated.",
				line(d, fmt.Sprintf("Status: %s", Label(d["status"])), "status"),
				line(d, fmt.Sprintf("Expires: %s", FormatDate(d["expires_at"])), "expires_at"),
			),
			Link: "/dashboard/free-trials",
		}
	},
	"freeTrial_created": func(d Data) Content {
		return Content{
			Title: "🎁 Your Free Trial Information!",
			Body: joinLines(
				greeting(d),
				"Your free trial is ready. Here are your access details:",
				line(d, fmt.Sprintf("Username: %s", field(d, "username", "")), "username"),
				line(d, fmt.Sprintf("Password: %s", field(d, "password", "")), "password"),
				line(d, fmt.Sprintf("Server URL: %s", field(d, "server_url", "")), "server_url"),
				line(d, fmt.Sprintf("M3U URL: %s", field(d, "m3u_url", "")), "m3u_url"),
				fmt.Sprintf("Expires: %s", FormatDate(d["expires_at"])),
			),
			Link: "/dashboard/free-trials",
		}
	},
	"subscription": func(d Data) Content {
		return Content{
			Title: "📺 Subscription Update",
			Body: joinLines(
				greeting(d),
				"Your subscription has been updated.",
				line(d, fmt.Sprintf("Plan: %s", Label(d["plan"])), "plan"),
				line(d, fmt.Sprintf("Status: %s", Label(d["status"])), "status"),
				line(d, fmt.Sprintf("Ends: %s", FormatDate(d["end_date"])), "end_date"),
			),
			Link: "/dashboard/subscriptions",
		}
	},
	"subscription_created": func(d Data) Content {
		return Content{
			Title: "📺 Your Subscription Is Active!",
			Body: joinLines(
				greeting(d),
				"Thank you for subscribing.",
				line(d, fmt.Sprintf("Plan: %s", Label(d["plan"])), "plan"),
				line(d, fmt.Sprintf("Username: %s", field(d, "username", "")), "username"),
				line(d, fmt.Sprintf("Password: %s", field(d, "password", "")), "password"),
				line(d, fmt.Sprintf("M3U URL: %s", field(d, "m3u_url", "")), "m3u_url"),
				fmt.Sprintf("Start: %s", FormatDate(d["start_date"])),
				fmt.Sprintf("End: %s", FormatDate(d["end_date"])),
			),
			Link: "/dashboard/subscriptions",
		}
	},
	"payment": func(d Data) Content {
		return Content{
			Title: "💳 Payment Update",
			Body: joinLines(
				greeting(d),
				line(d, fmt.Sprintf("Your payment is now %s.", Label(d["status"])), "status"),
				line(d, "Amount: "+amount(d), "amount"),
				line(d, fmt.Sprintf("Reference: %s", field(d, "reference", "")), "reference"),
			),
			Link: "/dashboard/payments",
		}
	},
	"payment_created": func(d Data) Content {
		return Content{
			Title: "💳 Payment Confirmation",
			Body: joinLines(
				greeting(d),
				"We received your payment.",
				line(d, "Amount: "+amount(d), "amount"),
				line(d, fmt.Sprintf("Method: %s", Label(d["method"])), "method"),
				line(d, fmt.Sprintf("Reference: %s", field(d, "reference", "")), "reference"),
				fmt.Sprintf("Date: %s", FormatDate(d["created_at"])),
			),
			Link: "/dashboard/payments",
		}
	},
	"liveChatMessage": func(d Data) Content {
		return Content{
			Title: "💬 New Reply From Support",
			Body: joinLines(
				greeting(d),
				line(d, fmt.Sprintf("Subject: %s", field(d, "subject", "")), "subject"),
				line(d, fmt.Sprintf("Message: %s", field(d, "message", "")), "message"),
			),
			Link: withID("/dashboard/live-chat", d, "conversation_id"),
		}
	},
	"liveChatMessage_created": func(d Data) Content {
		return Content{
			Title: "💬 Conversation Started",
			Body: joinLines(
				greeting(d),
				"Our support team will reply shortly.",
				line(d, fmt.Sprintf("Subject: %s", field(d, "subject", "")), "subject"),
			),
			Link: withID("/dashboard/live-chat", d, "conversation_id"),
		}
	},
	"bubbleChatMessage": func(d Data) Content {
		return Content{
			Title: "💬 New Message",
			Body: joinLines(
				greeting(d),
				line(d, field(d, "message", ""), "message"),
			),
			Link: "/dashboard",
		}
	},
	"error": func(d Data) Content {
		return Content{
			Title: "⚠️ Something Went Wrong",
			Body: joinLines(
				greeting(d),
				field(d, "message", "We could not complete your last request."),
				"Please try again or contact support.",
			),
			Link: "/dashboard",
		}
	},
}
