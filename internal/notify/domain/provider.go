package domain

import (
	"context"
	"errors"
)

var ErrProviderMisconfigured = errors.New("notify_provider_misconfigured")

// Provider delivers a rendered message to one admin channel.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	Title string
	Lines []string
}
