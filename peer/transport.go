package peer

import (
	"context"
	"time"

	"github.com/mo-shahab/peer-pong/authority"
)

type EventKind int

const (
	EventIncoming EventKind = iota
	EventOpen
	EventData
	EventClosed
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventIncoming:
		return "incoming"
	case EventOpen:
		return "open"
	case EventData:
		return "data"
	case EventClosed:
		return "closed"
	case EventError:
		return "error"
	}
	return "unknown"
}

// Event is emitted by a transport, and re-emitted by the Manager.
type Event struct {
	Kind EventKind

	// incoming, open
	RemoteID string
	// open
	Role         authority.Role
	ConnectionID string
	// data
	Payload []byte
	// error
	Err error

	// When the event arrived from the network.
	At time.Time
}

// Transport is the peer networking collaborator. Signalling and negotiation
// happen underneath it; this package depends on nothing else.
//
// Events must be delivered in arrival order on a single channel.
type Transport interface {
	// Listen registers id with the network. Inbound attempts then arrive
	// as EventIncoming.
	Listen(ctx context.Context, id string) error
	// Dial starts an outbound attempt. Success arrives as EventOpen.
	Dial(ctx context.Context, remoteID string) error
	Accept(remoteID string) error
	Reject(remoteID string) error
	Send(payload []byte) error
	// Close destroys the peer. Calling it more than once is harmless.
	Close() error
	Events() <-chan Event
}
