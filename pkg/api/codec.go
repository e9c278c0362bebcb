package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// Codec marshals plain Go structs as JSON for Connect. It registers under
// the "json" name, so both the Connect protocol's application/json and
// gRPC-Web's +json content types use it.
type Codec struct{}

var _ connect.Codec = Codec{}

// WithCodec is the option every handler and client needs.
func WithCodec() connect.Option {
	return connect.WithCodec(Codec{})
}

func (Codec) Name() string {
	return "json"
}

func (Codec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", msg, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(msg); err != nil {
		return fmt.Errorf("failed to unmarshal %T: %w", msg, err)
	}
	return nil
}
