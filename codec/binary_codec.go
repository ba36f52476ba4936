package codec

import (
	"encoding/binary"
	"encoding/json"
	"errors"

	"rpcmux/envelope"
)

// BinaryCodec lays out an Envelope's fixed-shape fields in order: the
// tag as one byte, reqID as a presence flag plus 8 bytes, and
// interface/method names, error message/code and forward destination
// (flagged) as length-prefixed strings. Args and Data have no fixed shape — they're arbitrary
// any — so each is JSON-encoded into its own length-prefixed blob
// rather than flattened field by field.
type BinaryCodec struct{}

func (c *BinaryCodec) Encode(env envelope.Envelope) ([]byte, error) {
	argsBlob, err := json.Marshal(env.Args)
	if err != nil {
		return nil, err
	}
	dataBlob, err := json.Marshal(env.Data)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, 64+len(argsBlob)+len(dataBlob))
	buf = append(buf, byte(env.Mtype))
	buf = appendOptionalInt64(buf, env.ReqID)
	buf = appendString(buf, env.Iface)
	buf = appendString(buf, env.Meth)
	buf = appendString(buf, env.Mesg)
	buf = appendString(buf, env.Code)
	buf = appendOptionalString(buf, env.FwdDest)
	buf = appendBlob(buf, argsBlob)
	buf = appendBlob(buf, dataBlob)
	return buf, nil
}

func (c *BinaryCodec) Decode(data []byte) (envelope.Envelope, error) {
	var env envelope.Envelope
	offset := 0

	if offset >= len(data) {
		return env, errors.New("codec: truncated envelope")
	}
	env.Mtype = envelope.Tag(data[offset])
	offset++

	var err error
	env.ReqID, offset, err = readOptionalInt64(data, offset)
	if err != nil {
		return env, err
	}
	env.Iface, offset, err = readString(data, offset)
	if err != nil {
		return env, err
	}
	env.Meth, offset, err = readString(data, offset)
	if err != nil {
		return env, err
	}
	env.Mesg, offset, err = readString(data, offset)
	if err != nil {
		return env, err
	}
	env.Code, offset, err = readString(data, offset)
	if err != nil {
		return env, err
	}
	env.FwdDest, offset, err = readOptionalString(data, offset)
	if err != nil {
		return env, err
	}

	var argsBlob, dataBlob []byte
	argsBlob, offset, err = readBlob(data, offset)
	if err != nil {
		return env, err
	}
	if err := json.Unmarshal(argsBlob, &env.Args); err != nil {
		return env, err
	}
	dataBlob, _, err = readBlob(data, offset)
	if err != nil {
		return env, err
	}
	if err := json.Unmarshal(dataBlob, &env.Data); err != nil {
		return env, err
	}
	return env, nil
}

func (c *BinaryCodec) Type() Type { return TypeBinary }

func appendString(buf []byte, s string) []byte {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, s...)
}

func appendBlob(buf []byte, b []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, b...)
}

func appendOptionalString(buf []byte, s *string) []byte {
	if s == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return appendString(buf, *s)
}

func appendOptionalInt64(buf []byte, v *int64) []byte {
	if v == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(*v))
	return append(buf, b[:]...)
}

func readString(data []byte, offset int) (string, int, error) {
	if offset+2 > len(data) {
		return "", offset, errors.New("codec: truncated string length")
	}
	n := int(binary.BigEndian.Uint16(data[offset : offset+2]))
	offset += 2
	if offset+n > len(data) {
		return "", offset, errors.New("codec: truncated string body")
	}
	return string(data[offset : offset+n]), offset + n, nil
}

func readBlob(data []byte, offset int) ([]byte, int, error) {
	if offset+4 > len(data) {
		return nil, offset, errors.New("codec: truncated blob length")
	}
	n := int(binary.BigEndian.Uint32(data[offset : offset+4]))
	offset += 4
	if offset+n > len(data) {
		return nil, offset, errors.New("codec: truncated blob body")
	}
	return data[offset : offset+n], offset + n, nil
}

func readOptionalString(data []byte, offset int) (*string, int, error) {
	if offset >= len(data) {
		return nil, offset, errors.New("codec: truncated optional string flag")
	}
	present := data[offset]
	offset++
	if present == 0 {
		return nil, offset, nil
	}
	s, offset, err := readString(data, offset)
	if err != nil {
		return nil, offset, err
	}
	return &s, offset, nil
}

func readOptionalInt64(data []byte, offset int) (*int64, int, error) {
	if offset >= len(data) {
		return nil, offset, errors.New("codec: truncated optional int flag")
	}
	present := data[offset]
	offset++
	if present == 0 {
		return nil, offset, nil
	}
	if offset+8 > len(data) {
		return nil, offset, errors.New("codec: truncated int64")
	}
	v := int64(binary.BigEndian.Uint64(data[offset : offset+8]))
	return &v, offset + 8, nil
}
