package rpc

import "encoding/json"

// jsonCodec lets the wire messages travel as JSON frames under the
// "application/grpc+json" content-subtype, so no generated stubs are needed
// on either side.
type jsonCodec struct{}

func (jsonCodec) Name() string {
	return "json"
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
