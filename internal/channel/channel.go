package channel

import (
	"encoding/json"
	"sync"

	"xrtour/internal/protocol"
)

// Transport delivers a serialized envelope to the peer. Fire-and-forget: no
// acknowledgement, ordering or delivery guarantee beyond send order on a
// single connection. Reliability is layered on top by the host controller.
type Transport interface {
	Send(data []byte) error
}

type Handler func(protocol.InboundEnvelope)

// Channel filters and (de)serializes cross-document messages. Envelopes not
// carrying the expected channel tag are dropped silently; the tag is the only
// authentication mechanism on this path.
type Channel struct {
	mu        sync.RWMutex
	transport Transport
	handlers  []Handler
}

func New(transport Transport) *Channel {
	return &Channel{transport: transport}
}

// SetTransport swaps the peer connection, e.g. when a viewer reconnects.
// A nil transport drops outbound traffic.
func (c *Channel) SetTransport(transport Transport) {
	c.mu.Lock()
	c.transport = transport
	c.mu.Unlock()
}

// ReleaseTransport clears the transport only if it is still the bound one, so
// an old socket's teardown cannot clobber a reconnect that already re-bound.
func (c *Channel) ReleaseTransport(transport Transport) {
	c.mu.Lock()
	if c.transport == transport {
		c.transport = nil
	}
	c.mu.Unlock()
}

func (c *Channel) Send(msgType string, payload interface{}) error {
	env := protocol.Envelope{
		Channel:   protocol.ChannelTag,
		Type:      msgType,
		Timestamp: protocol.NowMillis(),
		Payload:   payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	c.mu.RLock()
	transport := c.transport
	c.mu.RUnlock()
	if transport == nil {
		return nil
	}
	return transport.Send(data)
}

func (c *Channel) OnMessage(handler Handler) {
	c.mu.Lock()
	c.handlers = append(c.handlers, handler)
	c.mu.Unlock()
}

// Dispatch decodes an inbound frame and invokes the registered handlers.
// Malformed frames and foreign channel tags are ignored, not logged.
func (c *Channel) Dispatch(data []byte) {
	var inbound protocol.InboundEnvelope
	if err := json.Unmarshal(data, &inbound); err != nil {
		return
	}
	if inbound.Channel != protocol.ChannelTag {
		return
	}
	c.mu.RLock()
	handlers := make([]Handler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.RUnlock()
	for _, handler := range handlers {
		handler(inbound)
	}
}

// Pipe is an in-process transport that feeds sends directly into a peer
// channel's dispatch path.
type Pipe struct {
	peer *Channel
}

func NewPipe(peer *Channel) *Pipe {
	return &Pipe{peer: peer}
}

func (p *Pipe) Send(data []byte) error {
	p.peer.Dispatch(data)
	return nil
}
