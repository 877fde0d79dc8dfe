// Package signal defines the control frames a peer and the broker exchange
// over the websocket. Game payloads ride inside data frames untouched.
package signal

import "github.com/mo-shahab/peer-pong/authority"

type FrameType string

const (
	// broker -> peer once the id is registered
	FrameReady FrameType = "ready"
	// peer -> broker: dial Target
	FrameConnect FrameType = "connect"
	// broker -> peer: From wants to connect
	FrameConnection FrameType = "connection"
	// peer -> broker: answer to a connection frame
	FrameAccept FrameType = "accept"
	FrameReject FrameType = "reject"
	// broker -> both peers once paired
	FrameOpen FrameType = "open"
	FrameData FrameType = "data"
	FrameClose FrameType = "close"
	FrameError FrameType = "error"
)

// Error codes carried by error frames.
const (
	CodeIDTaken         = "id-taken"
	CodeInvalidID       = "invalid-id"
	CodeInvalidTarget   = "invalid-target"
	CodePeerUnavailable = "peer-unavailable"
	CodeOfferTimeout    = "offer-timeout"
	CodeRejected        = "rejected"
	CodeNotPaired       = "not-paired"
	CodeBadFrame        = "bad-frame"
)

type Frame struct {
	Type         FrameType      `json:"type"`
	ID           string         `json:"id,omitempty"`
	Target       string         `json:"target,omitempty"`
	From         string         `json:"from,omitempty"`
	Remote       string         `json:"remote,omitempty"`
	Role         authority.Role `json:"role,omitempty"`
	ConnectionID string         `json:"connection_id,omitempty"`
	Payload      []byte         `json:"payload,omitempty"`
	Code         string         `json:"code,omitempty"`
	Message      string         `json:"message,omitempty"`
}

func Ready(id string) Frame { return Frame{Type: FrameReady, ID: id} }

func Connect(target string) Frame { return Frame{Type: FrameConnect, Target: target} }

func Connection(from string) Frame { return Frame{Type: FrameConnection, From: from} }

func Accept(from string) Frame { return Frame{Type: FrameAccept, From: from} }

func Reject(from string) Frame { return Frame{Type: FrameReject, From: from} }

func Open(remote string, role authority.Role, connectionID string) Frame {
	return Frame{Type: FrameOpen, Remote: remote, Role: role, ConnectionID: connectionID}
}

func Data(payload []byte) Frame { return Frame{Type: FrameData, Payload: payload} }

func Close() Frame { return Frame{Type: FrameClose} }

func Error(code, message string) Frame {
	return Frame{Type: FrameError, Code: code, Message: message}
}
