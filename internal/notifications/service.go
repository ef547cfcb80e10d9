package notifications

import "context"

// Notification is a message fanned out to everyone subscribed to the topic.
// Attributes let subscribers filter, for example on the author.
type Notification struct {
	Subject    string
	Message    string
	Attributes map[string]string
}

type NotificationService interface {
	Publish(ctx context.Context, notification Notification) (string, error)
}
