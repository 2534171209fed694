package broker

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("broker: subscription closed")

type Message struct {
	Key      string
	Value    []byte
	Priority uint8
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Reader returns the next message, blocking until one arrives or ctx is done.
// Messages are acknowledged as they are read.
type Reader interface {
	ReadMessage(ctx context.Context) (Message, error)
	Close() error
}

// NopPublisher drops every message. It stands in when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Message) error { return nil }
func (NopPublisher) Close() error                           { return nil }
