package messaging

import (
	"context"
	"errors"
	"io"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrMemorySubjectRequired is returned when the subject is empty.
	ErrMemorySubjectRequired = errors.New("messaging: memory subject is required")
	// ErrMemoryHandlerRequired is returned when Consume is called with a nil handler.
	ErrMemoryHandlerRequired = errors.New("messaging: memory handler is required")
)

// MemoryConfig configures the in-process implementation.
type MemoryConfig struct {
	// Buffer is the per-subscription queue length. Publish blocks when it is full.
	Buffer int
}

// Memory delivers messages between publishers and consumers of one process.
// Subscriptions without a queue group each receive every message; members of
// a queue group receive them in turn.
type Memory struct {
	buffer int
	seq    atomic.Uint64

	mu     sync.RWMutex
	subs   map[string][]*memorySub
	turns  map[string]*atomic.Uint64
	closed bool
}

type memorySub struct {
	group string
	ch    chan *memoryMessage
}

// NewMemory constructs an in-process messaging client.
func NewMemory(cfg MemoryConfig) *Memory {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	return &Memory{
		buffer: cfg.Buffer,
		subs:   make(map[string][]*memorySub),
		turns:  make(map[string]*atomic.Uint64),
	}
}

// Close rejects further publishes. Running consumers stop with their context.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Publish delivers msg to the current subscribers of destination.
func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrMemorySubjectRequired
	}
	if msg.Delay > 0 {
		return PublishResult{}, ErrUnsupported
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return PublishResult{}, io.ErrClosedPipe
	}

	id := strconv.FormatUint(m.seq.Add(1), 10)
	now := time.Now()

	for _, sub := range m.targets(destination) {
		mm := &memoryMessage{
			id:      id,
			subject: destination,
			body:    append([]byte(nil), msg.Body...),
			headers: append([]Header(nil), msg.Headers...),
			at:      now,
		}
		select {
		case sub.ch <- mm:
		case <-ctx.Done():
			return PublishResult{}, ctx.Err()
		}
	}

	return PublishResult{MessageID: id, Subject: destination, Timestamp: now}, nil
}

// targets must be called with m.mu held.
func (m *Memory) targets(subject string) []*memorySub {
	var out []*memorySub
	groups := make(map[string][]*memorySub)
	for _, sub := range m.subs[subject] {
		if sub.group == "" {
			out = append(out, sub)
			continue
		}
		groups[sub.group] = append(groups[sub.group], sub)
	}

	for group, members := range groups {
		turn := m.turns[subject+"\x00"+group]
		if turn == nil {
			out = append(out, members[0])
			continue
		}
		out = append(out, members[int(turn.Add(1)-1)%len(members)])
	}
	return out
}

// Consume delivers messages of source to handler until ctx is done.
func (m *Memory) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if source == "" {
		return ErrMemorySubjectRequired
	}
	if handler == nil {
		return ErrMemoryHandlerRequired
	}

	co := newConsumeOptions(opts...)
	sub := &memorySub{
		group: co.queueGroup,
		ch:    make(chan *memoryMessage, m.buffer),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return io.ErrClosedPipe
	}
	m.subs[source] = append(m.subs[source], sub)
	if sub.group != "" {
		key := source + "\x00" + sub.group
		if m.turns[key] == nil {
			m.turns[key] = &atomic.Uint64{}
		}
	}
	m.mu.Unlock()

	wait := dispatch(ctx, "memory", co, sub.ch, func(m *memoryMessage) delivery { return m }, handler)

	<-ctx.Done()
	wait()

	// unblock publishers waiting on a full queue until the subscription is gone.
	go func() {
		for range sub.ch {
		}
	}()

	m.mu.Lock()
	m.subs[source] = slices.DeleteFunc(m.subs[source], func(s *memorySub) bool { return s == sub })
	m.mu.Unlock()

	close(sub.ch)

	return ctx.Err()
}

type memoryMessage struct {
	settleOnce
	id      string
	subject string
	body    []byte
	headers []Header
	at      time.Time
}

func (m *memoryMessage) Body() []byte      { return m.body }
func (m *memoryMessage) Headers() []Header { return m.headers }
func (m *memoryMessage) ID() string        { return m.id }
func (m *memoryMessage) Subject() string   { return m.subject }

func (m *memoryMessage) Timestamp() time.Time { return m.at }

// Ack marks the message handled. There is no broker to notify.
func (m *memoryMessage) Ack(context.Context) error {
	m.claim()
	return nil
}

// Nack marks the message handled. In-process delivery does not redeliver.
func (m *memoryMessage) Nack(context.Context) error {
	m.claim()
	return nil
}
