package bus

import (
	"strings"
	"testing"
	"time"
)

func TestMessageBus_PreservesOrder(t *testing.T) {
	b := NewMessageBus(4)
	for _, s := range []string{"one", "two", "three"} {
		b.PublishOutbound(NewOutboundMessage(ChannelWorld, "", s))
	}
	if b.OutboundSize() != 3 {
		t.Fatalf("expected 3 queued, got %d", b.OutboundSize())
	}
	for _, want := range []string{"one", "two", "three"} {
		got := <-b.OutboundChan()
		if got.Content() != want {
			t.Errorf("expected %q, got %q", want, got.Content())
		}
	}
}

func TestMessageBus_CloseUnblocksPublisher(t *testing.T) {
	b := NewMessageBus(0)
	done := make(chan struct{})
	go func() {
		b.PublishInbound(NewInboundMessage(ChannelWorld, "alice", "LOCAL", "hi"))
		close(done)
	}()

	b.Close()
	b.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher still blocked after Close")
	}
}

func TestInboundMessage_Preview(t *testing.T) {
	short := NewInboundMessage(ChannelWorld, "alice", "LOCAL", "follow me")
	if short.Preview() != "follow me" {
		t.Errorf("expected unchanged preview, got %q", short.Preview())
	}

	long := NewInboundMessage(ChannelWorld, "alice", "LOCAL", strings.Repeat("x", 100))
	if len(long.Preview()) != 83 || !strings.HasSuffix(long.Preview(), "...") {
		t.Errorf("expected truncated preview, got %q", long.Preview())
	}
	if long.Timestamp().IsZero() {
		t.Error("expected timestamp to be set")
	}
}
