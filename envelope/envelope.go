// Package envelope defines the wire message exchanged between two RPC
// endpoints: a tagged union of a call, a success reply, an error reply,
// an opaque custom message, and a peer-ready signal.
//
// The envelope is pure data. No serialization decision is made here —
// that is the codec package's job — and no transport decision is made
// here either: an Envelope is exactly as meaningful passed directly
// between two in-process Endpoints as it is decoded off a socket.
package envelope

// Tag identifies which variant of the envelope union is populated.
// These values are wire-stable: never renumber them, and only add new
// tags at the end.
type Tag uint8

const (
	Call     Tag = 1
	RespData Tag = 2
	RespErr  Tag = 3
	Custom   Tag = 4
	Ready    Tag = 5
)

func (t Tag) String() string {
	switch t {
	case Call:
		return "Call"
	case RespData:
		return "RespData"
	case RespErr:
		return "RespErr"
	case Custom:
		return "Custom"
	case Ready:
		return "Ready"
	default:
		return "Unknown"
	}
}

// Envelope is the single wire type carrying every message tag. Only the
// fields relevant to Mtype are populated; the rest are zero. Fields are
// additive-only: existing names and types must never change.
type Envelope struct {
	Mtype Tag

	// Call fields.
	ReqID *int64 // nil means omitted (fire-and-forget, rejected by the responder)
	Iface string
	Meth  string
	Args  []any

	// RespData / RespErr fields (ReqID above is reused for both).
	Data any
	Mesg string
	Code string

	// FwdDest is the sole multi-hop routing hint, valid on Call and
	// Custom. nil means "not tagged for forwarding"; a non-nil empty
	// string means "deliver locally at the peer"; any other value names
	// the next hop's forwarder ("*" included, which addresses that hop's
	// wildcard forwarder).
	FwdDest *string
}

// NewCall builds a Call envelope. reqID of nil means fire-and-forget.
func NewCall(reqID *int64, iface, meth string, args []any, fwdDest *string) Envelope {
	return Envelope{Mtype: Call, ReqID: reqID, Iface: iface, Meth: meth, Args: args, FwdDest: fwdDest}
}

// NewRespData builds a success reply envelope.
func NewRespData(reqID int64, data any) Envelope {
	id := reqID
	return Envelope{Mtype: RespData, ReqID: &id, Data: data}
}

// NewRespErr builds a failure reply envelope.
func NewRespErr(reqID int64, mesg, code string) Envelope {
	id := reqID
	return Envelope{Mtype: RespErr, ReqID: &id, Mesg: mesg, Code: code}
}

// NewCustom builds an opaque custom-message envelope.
func NewCustom(data any, fwdDest *string) Envelope {
	return Envelope{Mtype: Custom, Data: data, FwdDest: fwdDest}
}

// NewReady builds the peer-ready handshake envelope.
func NewReady() Envelope {
	return Envelope{Mtype: Ready}
}

// WithFwdDest returns a copy of e tagged for forwarder fwdDest.
func (e Envelope) WithFwdDest(fwdDest string) Envelope {
	e.FwdDest = &fwdDest
	return e
}
