package messaging

type consumeOptions struct {
	concurrency int
	autoAck     bool
	queueGroup  string
	requeue     bool
}

type ConsumeOption func(*consumeOptions)

func newConsumeOptions(opts ...ConsumeOption) consumeOptions {
	var co consumeOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&co)
		}
	}
	return co
}

func (co consumeOptions) workers() int {
	return max(co.concurrency, 1)
}

// WithConcurrency sets how many handlers run at once. The default is one.
func WithConcurrency(n int) ConsumeOption {
	return func(o *consumeOptions) { o.concurrency = n }
}

// WithQueueGroup makes the consumer a member of a group. Members of one group
// share the stream: each message reaches one of them.
func WithQueueGroup(queueGroup string) ConsumeOption {
	return func(o *consumeOptions) { o.queueGroup = queueGroup }
}

// WithAutoAck acks a message after its handler succeeds and nacks it after
// a failure, unless the handler settled it already.
func WithAutoAck(autoAck bool) ConsumeOption {
	return func(o *consumeOptions) { o.autoAck = autoAck }
}

// WithRequeue puts nacked messages back on the AMQP queue. Other drivers
// ignore it.
func WithRequeue(requeue bool) ConsumeOption {
	return func(o *consumeOptions) { o.requeue = requeue }
}
