package mqtt

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

type fakeSender struct {
	up   bool
	fail error
	sent []bufferedMsg
}

func (s *fakeSender) connected() bool { return s.up }

func (s *fakeSender) send(msg bufferedMsg) error {
	if s.fail != nil {
		return s.fail
	}
	s.sent = append(s.sent, msg)
	return nil
}

func TestOutboxSendsWhileConnected(t *testing.T) {
	s := &fakeSender{up: true}
	o := newOutbox(s, 8, zap.NewNop())

	if err := o.publish(bufferedMsg{topic: "a"}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.sent) != 1 || o.pending() != 0 {
		t.Errorf("expected direct send, sent=%d pending=%d", len(s.sent), o.pending())
	}
}

func TestOutboxBuffersOfflineAndReplays(t *testing.T) {
	s := &fakeSender{}
	o := newOutbox(s, 8, zap.NewNop())

	o.publish(bufferedMsg{topic: TopicSystem, payload: []byte("startup")}, false)
	o.publish(bufferedMsg{topic: TopicState, payload: []byte("s1")}, true)
	o.publish(bufferedMsg{topic: TopicState, payload: []byte("s2")}, true)

	if len(s.sent) != 0 {
		t.Fatalf("nothing should be sent offline, got %d", len(s.sent))
	}
	if o.pending() != 2 {
		t.Fatalf("expected 2 pending (latest state only), got %d", o.pending())
	}

	s.up = true
	if n := o.flush(); n != 2 {
		t.Errorf("expected 2 replayed, got %d", n)
	}
	if string(s.sent[0].payload) != "startup" || string(s.sent[1].payload) != "s2" {
		t.Errorf("unexpected replay order: %q, %q", s.sent[0].payload, s.sent[1].payload)
	}
	if o.pending() != 0 {
		t.Errorf("expected empty buffer, got %d", o.pending())
	}
}

func TestOutboxKeepsFailedMessages(t *testing.T) {
	s := &fakeSender{up: true, fail: errors.New("broker said no")}
	o := newOutbox(s, 8, zap.NewNop())

	if err := o.publish(bufferedMsg{topic: "a"}, false); err == nil {
		t.Error("expected send error")
	}
	if o.pending() != 1 {
		t.Fatalf("failed message should be buffered, pending=%d", o.pending())
	}

	if n := o.flush(); n != 0 {
		t.Errorf("expected 0 replayed, got %d", n)
	}
	if o.pending() != 1 {
		t.Errorf("message should stay buffered after failed replay, pending=%d", o.pending())
	}

	s.fail = nil
	if n := o.flush(); n != 1 {
		t.Errorf("expected 1 replayed, got %d", n)
	}
}
