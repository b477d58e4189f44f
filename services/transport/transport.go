package transport

import (
	"context"
	"fmt"

	"calibration-backend/models"
)

// Message is one outbound delivery. Subject doubles as the push title.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message over one channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Registry selects a Sender by channel.
type Registry struct {
	senders map[models.Channel]Sender
}

func NewRegistry() *Registry {
	return &Registry{senders: map[models.Channel]Sender{}}
}

func (r *Registry) Register(channel models.Channel, sender Sender) {
	r.senders[channel] = sender
}

func (r *Registry) For(channel models.Channel) (Sender, error) {
	sender, ok := r.senders[channel]
	if !ok {
		return nil, fmt.Errorf("no transport registered for channel %q", channel)
	}
	return sender, nil
}

// Unconfigured fails every send; it stands in for a channel whose credentials are missing.
func Unconfigured(channel models.Channel) Sender {
	return SenderFunc(func(context.Context, Message) error {
		return fmt.Errorf("%s transport is not configured", channel)
	})
}
