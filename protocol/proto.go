package protocol

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

const ProtoCodecName = "proto"

// ProtoCodec writes messages in the protobuf wire format. The layout
// matches this message definition:
//
//	message GameMessage {
//	  MsgType type        = 1;
//	  double position     = 2;
//	  double x            = 3;
//	  double y            = 4;
//	  int32 player1_score = 5;
//	  int32 player2_score = 6;
//	}
//
//	enum MsgType { unknown = 0; paddle_move = 1; ball_update = 2; score_update = 3; }
type ProtoCodec struct{}

const (
	fieldType         protowire.Number = 1
	fieldPosition     protowire.Number = 2
	fieldX            protowire.Number = 3
	fieldY            protowire.Number = 4
	fieldPlayer1Score protowire.Number = 5
	fieldPlayer2Score protowire.Number = 6
)

var protoTypes = map[MsgType]uint64{
	MsgTypePaddleMove:  1,
	MsgTypeBallUpdate:  2,
	MsgTypeScoreUpdate: 3,
}

func (ProtoCodec) Name() string { return ProtoCodecName }

func (ProtoCodec) Encode(m Message) ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	b := protowire.AppendTag(nil, fieldType, protowire.VarintType)
	b = protowire.AppendVarint(b, protoTypes[m.Type])

	switch m.Type {
	case MsgTypePaddleMove:
		b = appendDouble(b, fieldPosition, m.Position)
	case MsgTypeBallUpdate:
		b = appendDouble(b, fieldX, m.X)
		b = appendDouble(b, fieldY, m.Y)
	case MsgTypeScoreUpdate:
		b = appendInt32(b, fieldPlayer1Score, m.Player1Score)
		b = appendInt32(b, fieldPlayer2Score, m.Player2Score)
	}
	return b, nil
}

func (ProtoCodec) Decode(data []byte) (Message, error) {
	if len(data) == 0 {
		return Message{}, malformed("empty payload")
	}

	var (
		m    Message
		seen = map[protowire.Number]bool{}
	)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return Message{}, malformed("%v", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldType && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return Message{}, malformed("%v", protowire.ParseError(n))
			}
			m.Type = typeFromProto(v)
			data = data[n:]
		case (num == fieldPosition || num == fieldX || num == fieldY) && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return Message{}, malformed("%v", protowire.ParseError(n))
			}
			f := math.Float64frombits(v)
			switch num {
			case fieldPosition:
				m.Position = f
			case fieldX:
				m.X = f
			case fieldY:
				m.Y = f
			}
			data = data[n:]
		case (num == fieldPlayer1Score || num == fieldPlayer2Score) && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return Message{}, malformed("%v", protowire.ParseError(n))
			}
			if num == fieldPlayer1Score {
				m.Player1Score = int32(v)
			} else {
				m.Player2Score = int32(v)
			}
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return Message{}, malformed("%v", protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}
		seen[num] = true
	}

	if !seen[fieldType] {
		return Message{}, malformed("missing type")
	}
	return m, m.validate()
}

func typeFromProto(v uint64) MsgType {
	for t, n := range protoTypes {
		if n == v {
			return t
		}
	}
	return MsgType("")
}

func appendDouble(b []byte, num protowire.Number, f float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(f))
}

// int32 fields use plain varints, negative values sign-extend to 64 bits.
func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(v)))
}
