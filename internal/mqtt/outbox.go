package mqtt

import (
	"sync"

	"go.uber.org/zap"
)

// sender is the part of a broker connection the outbox needs.
type sender interface {
	connected() bool
	send(msg bufferedMsg) error
}

// outbox sends messages while connected and buffers them otherwise.
// Buffered messages are replayed in order by flush.
type outbox struct {
	mu  sync.Mutex
	out sender
	buf *ringBuffer
	log *zap.Logger
}

func newOutbox(out sender, capacity int, log *zap.Logger) *outbox {
	return &outbox{
		out: out,
		buf: newRingBuffer(capacity, log),
		log: log,
	}
}

// publish sends msg, or buffers it when offline or when the send fails.
// With latestOnly, an older buffered message on the same topic is dropped.
func (o *outbox) publish(msg bufferedMsg, latestOnly bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.out.connected() {
		err := o.out.send(msg)
		if err == nil {
			return nil
		}
		o.log.Warn("publish failed, buffering", zap.String("topic", msg.topic), zap.Error(err))
		o.enqueue(msg, latestOnly)
		return err
	}

	o.enqueue(msg, latestOnly)
	return nil
}

func (o *outbox) enqueue(msg bufferedMsg, latestOnly bool) {
	if latestOnly {
		o.buf.replace(msg)
		return
	}
	o.buf.push(msg)
}

// flush replays buffered messages. Messages that fail again stay buffered.
func (o *outbox) flush() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	pending := o.buf.drainAll()
	sent := 0
	for i, msg := range pending {
		if err := o.out.send(msg); err != nil {
			o.log.Warn("replay failed", zap.String("topic", msg.topic), zap.Error(err))
			for _, m := range pending[i:] {
				o.buf.push(m)
			}
			break
		}
		sent++
	}
	if sent > 0 {
		o.log.Info("replayed buffered messages", zap.Int("count", sent))
	}
	return sent
}

func (o *outbox) pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.len()
}
