package mqtt

import (
	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/uartcon/pkg/sim"
)

func numberValue(v uint64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: float64(v)}}
}

// StatsStruct converts board statistics into a protobuf Struct.
func StatsStruct(s sim.Stats) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"rx_buffered":       numberValue(uint64(s.Port.Buffered)),
			"rx_dropped":        numberValue(s.Port.Dropped),
			"rx_overruns":       numberValue(s.Overruns),
			"commands_executed": numberValue(s.Console.Executed),
			"commands_unknown":  numberValue(s.Console.Unknown),
			"input_truncated":   numberValue(s.Console.Truncated),
			"led":               {Kind: &structpb.Value_BoolValue{BoolValue: s.LED}},
		},
	}
}

// EncodeStats encodes board statistics in protobuf wire format.
func EncodeStats(s sim.Stats) ([]byte, error) {
	return proto.Marshal(StatsStruct(s))
}

// DecodeStats decodes what EncodeStats produced.
func DecodeStats(data []byte) (*structpb.Struct, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
