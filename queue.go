package greengrass

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/gurre/greengrass-core/mailbox"
)

// queuedMessage is one publish handed off to the queue's worker.
type queuedMessage struct {
	topic   string
	payload []byte
	opts    []PublishOption
}

// PublishQueue decouples producers from the blocking publish path. Handlers
// run on the thread the runtime calls in on and must return promptly; a queue
// lets them hand messages to a worker goroutine that publishes in enqueue
// order. Depth comes from the client's mailbox depth configuration.
type PublishQueue struct {
	client *Client
	box    *mailbox.Mailbox[queuedMessage]
	wg     sync.WaitGroup

	mu       sync.Mutex
	firstErr error
}

// NewPublishQueue creates a queue and starts its worker. Call Close to drain
// and stop it.
func (c *Client) NewPublishQueue() *PublishQueue {
	q := &PublishQueue{
		client: c,
		box:    mailbox.New[queuedMessage](c.cfg.MailboxDepth),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// run drains the mailbox until it closes and empties, publishing each message
// in FIFO order.
func (q *PublishQueue) run() {
	defer q.wg.Done()
	for {
		msg, err := q.box.Recv(context.Background())
		if err != nil {
			return
		}
		if err := q.client.Publish(context.Background(), msg.topic, msg.payload, msg.opts...); err != nil {
			q.recordErr(err)
			q.client.logger.Warn("queued publish failed",
				zap.String("topic", msg.topic),
				zap.Error(err),
			)
		}
	}
}

// recordErr keeps the first publish failure for Close to report.
func (q *PublishQueue) recordErr(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.firstErr == nil {
		q.firstErr = err
	}
}

// Enqueue hands a message to the worker, blocking while the queue is full.
// The payload is copied; the caller may reuse its buffer immediately.
func (q *PublishQueue) Enqueue(ctx context.Context, topic string, payload []byte, opts ...PublishOption) error {
	return q.box.Send(ctx, queuedMessage{
		topic:   topic,
		payload: append([]byte(nil), payload...),
		opts:    opts,
	})
}

// TryEnqueue hands a message to the worker without blocking, failing with
// mailbox.ErrFull when the queue is at capacity.
func (q *PublishQueue) TryEnqueue(topic string, payload []byte, opts ...PublishOption) error {
	return q.box.TrySend(queuedMessage{
		topic:   topic,
		payload: append([]byte(nil), payload...),
		opts:    opts,
	})
}

// Len returns the number of messages waiting for the worker.
func (q *PublishQueue) Len() int { return q.box.Len() }

// Close stops accepting messages, waits for the worker to drain everything
// already enqueued, and returns the first publish failure, if any.
func (q *PublishQueue) Close() error {
	q.box.Close()
	q.wg.Wait()
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.firstErr
}
