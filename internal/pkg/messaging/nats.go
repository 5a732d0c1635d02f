package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

var (
	ErrNATSSubjectRequired = errors.New("messaging: nats subject is required")
	ErrNATSURLRequired     = errors.New("messaging: nats url is required")
	ErrNATSHandlerRequired = errors.New("messaging: nats handler is required")
)

type NATSConfig struct {
	URL     string
	Options []nats.Option
}

// NATS publishes on core NATS subjects. Delivery is at most once: a message
// published while no member of a queue group is subscribed is lost.
type NATS struct {
	conn *nats.Conn

	mu     sync.Mutex
	subs   []*nats.Subscription
	closed bool
}

func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	conn, err := nats.Connect(cfg.URL, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect: %w", err)
	}

	return &NATS{conn: conn}, nil
}

// Close drains the open subscriptions, then the connection.
func (n *NATS) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	subs := slices.Clone(n.subs)
	n.subs = nil
	n.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		errs = append(errs, ignoreNATSClosed(sub.Drain()))
	}
	errs = append(errs, ignoreNATSClosed(n.conn.Drain()))

	return errors.Join(errs...)
}

func (n *NATS) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrNATSSubjectRequired
	}
	if msg.Delay > 0 {
		return PublishResult{}, ErrUnsupported
	}

	out := nats.NewMsg(destination)
	out.Data = msg.Body
	for _, h := range msg.Headers {
		if h.Key != "" {
			out.Header.Add(h.Key, string(h.Value))
		}
	}

	if err := n.conn.PublishMsg(out); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nats publish: %w", err)
	}
	if err := n.conn.Flush(); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nats flush: %w", err)
	}

	return PublishResult{Subject: destination, Timestamp: time.Now()}, nil
}

func (n *NATS) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if source == "" {
		return ErrNATSSubjectRequired
	}
	if handler == nil {
		return ErrNATSHandlerRequired
	}

	co := newConsumeOptions(opts...)

	// never closed: the subscription callback may still run after Drain
	// returns, so workers stop on ctx instead.
	inbox := make(chan *nats.Msg, co.workers())
	sub, err := n.conn.QueueSubscribe(source, co.queueGroup, func(m *nats.Msg) {
		select {
		case inbox <- m:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("messaging: nats subscribe: %w", err)
	}

	if err := n.track(sub); err != nil {
		return errors.Join(err, ignoreNATSClosed(sub.Unsubscribe()))
	}
	if err := n.conn.Flush(); err != nil {
		return errors.Join(fmt.Errorf("messaging: nats flush: %w", err), n.untrack(sub))
	}

	wait := dispatch(ctx, "nats", co, inbox, func(m *nats.Msg) delivery {
		return &natsMessage{msg: m, receivedAt: time.Now()}
	}, handler)

	<-ctx.Done()
	uerr := n.untrack(sub)
	wait()

	return errors.Join(ctx.Err(), uerr)
}

func (n *NATS) track(sub *nats.Subscription) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return io.ErrClosedPipe
	}
	n.subs = append(n.subs, sub)
	return nil
}

// untrack drains sub unless Close already took it over.
func (n *NATS) untrack(sub *nats.Subscription) error {
	n.mu.Lock()
	i := slices.Index(n.subs, sub)
	if i >= 0 {
		n.subs = slices.Delete(n.subs, i, i+1)
	}
	n.mu.Unlock()

	if i < 0 {
		return nil
	}
	return ignoreNATSClosed(sub.Drain())
}

func ignoreNATSClosed(err error) error {
	if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
		return nil
	}
	return err
}

type natsMessage struct {
	settleOnce
	msg        *nats.Msg
	receivedAt time.Time
}

func (m *natsMessage) Body() []byte { return m.msg.Data }

func (m *natsMessage) Headers() []Header {
	var out []Header
	for k, values := range m.msg.Header {
		for _, v := range values {
			out = append(out, Header{Key: k, Value: []byte(v)})
		}
	}
	return out
}

// ID is empty: core NATS assigns no message ids.
func (m *natsMessage) ID() string { return "" }

func (m *natsMessage) Subject() string { return m.msg.Subject }

func (m *natsMessage) Timestamp() time.Time { return m.receivedAt }

// Ack and Nack only matter for JetStream deliveries. Core NATS messages have
// no reply subject and settle locally.
func (m *natsMessage) Ack(ctx context.Context) error {
	return m.respond(ctx, m.msg.Ack)
}

func (m *natsMessage) Nack(ctx context.Context) error {
	return m.respond(ctx, m.msg.Nak)
}

func (m *natsMessage) respond(ctx context.Context, fn func(...nats.AckOpt) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !m.claim() {
		return nil
	}
	if err := fn(); err != nil && !errors.Is(err, nats.ErrMsgNoReply) && !errors.Is(err, nats.ErrMsgNotBound) {
		return err
	}
	return nil
}
