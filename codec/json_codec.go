package codec

import (
	"encoding/json"

	"rpcmux/envelope"
)

// JSONCodec uses the standard library's encoding/json. Human-readable
// and cross-language, at the cost of reflection overhead and a larger
// payload than BinaryCodec.
type JSONCodec struct{}

func (c *JSONCodec) Encode(env envelope.Envelope) ([]byte, error) {
	return json.Marshal(env)
}

func (c *JSONCodec) Decode(data []byte) (envelope.Envelope, error) {
	var env envelope.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope.Envelope{}, err
	}
	return env, nil
}

func (c *JSONCodec) Type() Type { return TypeJSON }
