package bus

import "sync"

type ChannelType string

const (
	ChannelWorld     ChannelType = "world"
	ChannelCLI       ChannelType = "cli"
	ChannelCron      ChannelType = "cron"
	ChannelHeartbeat ChannelType = "heartbeat"
	ChannelSystem    ChannelType = "system"
)

// Bus is the contract between the world connection and the agent core.
type Bus interface {
	// PublishInbound delivers a chat line from the world to the agent.
	PublishInbound(msg InboundMessage)
	// PublishOutbound delivers a chat line from the agent to the world.
	PublishOutbound(msg OutboundMessage)
	// InboundChan returns a receive-only channel for the agent to consume.
	InboundChan() <-chan InboundMessage
	// OutboundChan returns a receive-only channel for the world client to consume.
	OutboundChan() <-chan OutboundMessage
	// Close unblocks pending publishers. Messages published afterwards are dropped.
	Close()
}

// MessageBus is the default in-process Bus implementation backed by buffered Go channels.
//
// The world client pushes InboundMessages; the agent consumes them, processes, and
// pushes OutboundMessages back for the world client to say in chat.
// Both directions preserve publish order.
type MessageBus struct {
	inbound  chan InboundMessage  // world -> agent
	outbound chan OutboundMessage // agent -> world
	done     chan struct{}
	once     sync.Once
}

func NewMessageBus(bufSize int) *MessageBus {
	return &MessageBus{
		inbound:  make(chan InboundMessage, bufSize),
		outbound: make(chan OutboundMessage, bufSize),
		done:     make(chan struct{}),
	}
}

// PublishInbound sends an InboundMessage to the agent.
func (b *MessageBus) PublishInbound(msg InboundMessage) {
	select {
	case b.inbound <- msg:
	case <-b.done:
	}
}

// PublishOutbound sends an OutboundMessage to the world client.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	select {
	case b.outbound <- msg:
	case <-b.done:
	}
}

// InboundChan returns a receive-only view of the inbound channel.
func (b *MessageBus) InboundChan() <-chan InboundMessage {
	return b.inbound
}

// OutboundChan returns a receive-only view of the outbound channel.
func (b *MessageBus) OutboundChan() <-chan OutboundMessage {
	return b.outbound
}

func (b *MessageBus) Close() {
	b.once.Do(func() { close(b.done) })
}

func (b *MessageBus) InboundSize() int { return len(b.inbound) }

func (b *MessageBus) OutboundSize() int { return len(b.outbound) }
