package model

import "context"

// Notifier delivers alert notifications.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}
