// Package messaging publishes and consumes broker messages without tying
// callers to a broker. NATS and RabbitMQ are the networked drivers; the
// memory driver delivers inside one process.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	// ErrUnsupported is returned for features a driver cannot honour, such
	// as delayed delivery.
	ErrUnsupported   = errors.New("messaging: unsupported operation")
	ErrUnknownDriver = errors.New("messaging: unknown driver")
)

// Options carries the settings of every driver; Open reads only the one it
// builds.
type Options struct {
	NATS   NATSConfig
	AMQP   AMQPConfig
	Memory MemoryConfig
}

// Open connects the driver named nats, amqp or memory.
func Open(driver string, opts Options) (Messaging, error) {
	switch d := strings.ToLower(strings.TrimSpace(driver)); d {
	case "nats":
		return NewNATS(opts.NATS)
	case "amqp":
		return NewAMQP(opts.AMQP)
	case "memory":
		return NewMemory(opts.Memory), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, d)
	}
}

type Messaging interface {
	io.Closer

	// Publish sends msg to a subject (NATS) or routing key (AMQP).
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
	// Consume blocks, delivering messages of source to handler until ctx is
	// done.
	Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error
}

// Handler errors nack the message when auto ack is on. What a nack means is
// up to the driver.
type Handler func(ctx context.Context, msg Message) error

type OutgoingMessage struct {
	Body    []byte
	Headers []Header
	// Delay is rejected with ErrUnsupported by every current driver.
	Delay time.Duration
}

type Header struct {
	Key   string
	Value []byte
}

type PublishResult struct {
	// MessageID is empty when the driver assigns none.
	MessageID string
	Subject   string
	Timestamp time.Time
}

type Message interface {
	Body() []byte
	Headers() []Header
	ID() string
	Subject() string
	Timestamp() time.Time

	Ack(ctx context.Context) error
	// Nack asks for redelivery where the driver supports it.
	Nack(ctx context.Context) error
}

// HeaderValue returns the first value of key, or an empty string.
func HeaderValue(msg Message, key string) string {
	for _, h := range msg.Headers() {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
