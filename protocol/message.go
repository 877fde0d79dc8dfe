package protocol

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformedMessage is returned for any inbound payload that cannot be
// decoded into one of the known message kinds.
var ErrMalformedMessage = errors.New("protocol: malformed message")

// MsgType discriminates the three wire messages.
type MsgType string

const (
	MsgTypePaddleMove  MsgType = "paddleMove"
	MsgTypeBallUpdate  MsgType = "ballUpdate"
	MsgTypeScoreUpdate MsgType = "scoreUpdate"
)

// Message is a flat record. Only the fields of its Type are meaningful.
type Message struct {
	Type MsgType

	// paddleMove
	Position float64

	// ballUpdate
	X, Y float64

	// scoreUpdate
	Player1Score int32
	Player2Score int32
}

func PaddleMove(position float64) Message {
	return Message{Type: MsgTypePaddleMove, Position: position}
}

func BallUpdate(x, y float64) Message {
	return Message{Type: MsgTypeBallUpdate, X: x, Y: y}
}

func ScoreUpdate(player1, player2 int32) Message {
	return Message{Type: MsgTypeScoreUpdate, Player1Score: player1, Player2Score: player2}
}

// Codec converts messages to and from the bytes carried by the transport.
type Codec interface {
	Name() string
	Encode(Message) ([]byte, error)
	Decode([]byte) (Message, error)
}

// ForName returns the codec registered under name ("json" or "proto").
func ForName(name string) (Codec, error) {
	switch name {
	case "", JSONCodecName:
		return JSONCodec{}, nil
	case ProtoCodecName:
		return ProtoCodec{}, nil
	}
	return nil, fmt.Errorf("protocol: unknown codec %q", name)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedMessage, fmt.Sprintf(format, args...))
}

func (m Message) validate() error {
	switch m.Type {
	case MsgTypePaddleMove:
		if !finite(m.Position) {
			return malformed("paddle position is not finite")
		}
	case MsgTypeBallUpdate:
		if !finite(m.X) || !finite(m.Y) {
			return malformed("ball position is not finite")
		}
	case MsgTypeScoreUpdate:
	default:
		return malformed("unknown type %q", m.Type)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
