package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is the content subtype LendingService clients select with
// grpc.CallContentSubtype. Requests and replies are the plain structs in
// messages.go, so no generated protobuf code is involved.
const codecName = "json"

func init() {
	encoding.RegisterCodec(lendingCodec{})
}

// lendingCodec marshals coop.lending.v1.LendingService messages as JSON.
// Amounts travel as decimal strings, so nothing is lost to float parsing.
type lendingCodec struct{}

func (lendingCodec) Name() string { return codecName }

func (lendingCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (lendingCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
