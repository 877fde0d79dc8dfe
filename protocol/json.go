package protocol

import (
	"encoding/json"
	"fmt"
)

const JSONCodecName = "json"

// JSONCodec is the canonical text encoding: one flat JSON object per
// message tagged by "type".
type JSONCodec struct{}

type jsonMessage struct {
	Type         MsgType  `json:"type"`
	Position     *float64 `json:"position,omitempty"`
	X            *float64 `json:"x,omitempty"`
	Y            *float64 `json:"y,omitempty"`
	Player1Score *int32   `json:"player1Score,omitempty"`
	Player2Score *int32   `json:"player2Score,omitempty"`
}

func (JSONCodec) Name() string { return JSONCodecName }

func (JSONCodec) Encode(m Message) ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	wire := jsonMessage{Type: m.Type}
	switch m.Type {
	case MsgTypePaddleMove:
		wire.Position = &m.Position
	case MsgTypeBallUpdate:
		wire.X, wire.Y = &m.X, &m.Y
	case MsgTypeScoreUpdate:
		wire.Player1Score, wire.Player2Score = &m.Player1Score, &m.Player2Score
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", m.Type, err)
	}
	return data, nil
}

func (JSONCodec) Decode(data []byte) (Message, error) {
	var wire jsonMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return Message{}, malformed("%v", err)
	}

	m := Message{Type: wire.Type}
	switch wire.Type {
	case MsgTypePaddleMove:
		if wire.Position == nil {
			return Message{}, malformed("paddleMove without position")
		}
		m.Position = *wire.Position
	case MsgTypeBallUpdate:
		if wire.X == nil || wire.Y == nil {
			return Message{}, malformed("ballUpdate without x/y")
		}
		m.X, m.Y = *wire.X, *wire.Y
	case MsgTypeScoreUpdate:
		if wire.Player1Score == nil || wire.Player2Score == nil {
			return Message{}, malformed("scoreUpdate without scores")
		}
		m.Player1Score, m.Player2Score = *wire.Player1Score, *wire.Player2Score
	default:
		return Message{}, malformed("unknown type %q", wire.Type)
	}
	return m, m.validate()
}
