package bus

// OutboundMessage is a chat line the agent wants said in the world.
type OutboundMessage struct {
	channel  ChannelType    // destination channel name
	chatId   string         // destination world chat channel; empty means the default
	content  string         // text to send
	metadata map[string]any // origin hints (turn id, tool, ...)
}

func (m OutboundMessage) Channel() ChannelType           { return m.channel }
func (m OutboundMessage) ChatId() string                 { return m.chatId }
func (m OutboundMessage) Content() string                { return m.content }
func (m OutboundMessage) Metadata() map[string]any       { return m.metadata }
func (m *OutboundMessage) SetMetadata(md map[string]any) { m.metadata = md }

func NewOutboundMessage(channel ChannelType, chatId, content string) OutboundMessage {
	return OutboundMessage{
		channel: channel,
		chatId:  chatId,
		content: content,
	}
}
