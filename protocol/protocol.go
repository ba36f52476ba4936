// Package protocol implements the wire framing rpcmux/transport uses
// to send one codec-encoded Envelope at a time over a byte stream.
//
// It solves TCP's sticky-packet problem with a fixed-size header that
// carries the body's length, so the receiver always knows exactly how
// many bytes to read before the next frame starts.
//
// Frame format:
//
//	0      3  4  5         9
//	┌──────┬──┬──┬─────────┬───────────────┐
//	│magic │v │ct│ bodyLen │    body ...    │
//	│ rpx  │01│  │ uint32  │ bodyLen bytes  │
//	└──────┴──┴──┴─────────┴───────────────┘
//
// There is no separate seq/msgType field in the frame itself:
// rpcmux/envelope.Envelope already carries its own reqID and tag, so
// multiplexing correlation lives one layer up, in rpcmux/endpoint.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic number bytes: "rpx" (rpcmux frame).
const (
	MagicNumber byte = 0x72 // 'r'
	MagicByte2  byte = 0x70 // 'p'
	MagicByte3  byte = 0x78 // 'x'
	Version     byte = 0x01
	HeaderSize  int  = 9 // 3 (magic) + 1 (version) + 1 (codec) + 4 (bodyLen)
)

// Header is the fixed 9-byte frame header.
type Header struct {
	CodecType byte
	BodyLen   uint32
}

// Encode writes one complete frame (header + body) to w. Callers
// sharing w across goroutines must serialize their own Encode calls —
// an interleaved write from two goroutines would corrupt the stream.
func Encode(w io.Writer, h *Header, body []byte) error {
	buf := make([]byte, HeaderSize)
	copy(buf[0:3], []byte{MagicNumber, MagicByte2, MagicByte3})
	buf[3] = Version
	buf[4] = h.CodecType
	binary.BigEndian.PutUint32(buf[5:9], h.BodyLen)

	if _, err := w.Write(buf); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// Decode reads one complete frame from r, validating the magic number
// and version before trusting bodyLen.
func Decode(r io.Reader) (*Header, []byte, error) {
	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return nil, nil, err
	}

	if headerBuf[0] != MagicNumber || headerBuf[1] != MagicByte2 || headerBuf[2] != MagicByte3 {
		return nil, nil, fmt.Errorf("protocol: invalid magic number: %x", headerBuf[0:3])
	}
	if headerBuf[3] != Version {
		return nil, nil, fmt.Errorf("protocol: unsupported version: %d", headerBuf[3])
	}

	bodyLen := binary.BigEndian.Uint32(headerBuf[5:9])
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, nil, err
	}

	return &Header{CodecType: headerBuf[4], BodyLen: bodyLen}, body, nil
}
