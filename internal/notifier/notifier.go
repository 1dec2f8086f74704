package notifier

import (
	"context"
	"errors"
	"fmt"
)

// Message is a notification with an HTML body.
type Message struct {
	Subject string
	HTML    string
	To      []string // email recipients; empty means the configured defaults
}

// Notifier delivers messages to one channel.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
	Name() string
}

// Multi fans a message out to every notifier.
type Multi []Notifier

func (m Multi) Name() string { return "multi" }

// Notify sends to all notifiers and joins their errors.
func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
