package api

import (
	"encoding/json"
)

const codecName = "json"

// jsonCodec carries gateway messages as JSON so the request and response
// structs in types can travel over gRPC without generated stubs.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}
