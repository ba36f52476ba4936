// Package endpoint implements the transport-agnostic, bidirectional,
// promise-based RPC multiplexer: a single Endpoint can simultaneously
// serve incoming calls, make outgoing ones, and forward envelopes it
// has no local stake in toward another Endpoint. It is deliberately
// ignorant of how bytes cross the wire — see rpcmux/codec and
// rpcmux/transport for one concrete way to do that — it only knows how
// to produce and consume rpcmux/envelope.Envelope values.
package endpoint

import (
	"sync"

	"rpcmux/envelope"
)

// Endpoint is one side of a multiplexed RPC connection. The zero value
// is not usable; construct with New.
type Endpoint struct {
	mu          sync.Mutex
	logger      Logger
	callWrapper CallWrapper

	sendFn        SendFunc
	awaitingReady bool
	outQueue      []envelope.Envelope

	inboundSuspended bool
	inQueue          []envelope.Envelope

	impls      map[string]*Implementation
	forwarders map[string]*Forwarder
	pending    map[int64]*pendingCall
	reqSeq     int64

	msgListeners []func(envelope.Envelope)
	errListeners []func(error)

	closed bool
}

// New constructs an Endpoint per opts. A zero Options is valid: it
// yields an endpoint with no logging, no send function (set one with
// SetSend before traffic can flow), and a pass-through CallWrapper.
// Inbound dispatch starts suspended — envelopes passed to Receive queue
// until ProcessIncoming (or Start, which calls it) is called, so
// implementations and forwarders registered during startup are
// guaranteed to be in place before the first message that might need
// them is processed.
func New(opts Options) *Endpoint {
	logger := opts.Logger
	if logger == nil {
		logger = NopLogger{}
	}
	e := &Endpoint{
		logger:           logger,
		callWrapper:      opts.CallWrapper,
		sendFn:           opts.SendMessage,
		inboundSuspended: true,
		impls:            make(map[string]*Implementation),
		forwarders:       make(map[string]*Forwarder),
		pending:          make(map[int64]*pendingCall),
	}
	return e
}

// Post sends a Custom message to the peer, unconnected to any call. It
// is queued if the endpoint is not yet ready, exactly like a call's
// outgoing envelope.
func (e *Endpoint) Post(data any) error {
	return e.queueOrSend(envelope.NewCustom(data, nil))
}

// PostVia sends a Custom message addressed to forwarder.
func (e *Endpoint) PostVia(data any, forwarder string) error {
	return e.queueOrSend(envelope.NewCustom(data, &forwarder))
}

// CallRemote invokes method on iface at the peer and blocks for the
// response. The result is not checked against any schema — use GetStub
// with a checker for that.
func (e *Endpoint) CallRemote(iface, method string, args []any) (any, error) {
	return e.call(iface, method, args, nil, nil)
}

// CallRemoteVia invokes method on iface, routed through forwarder.
func (e *Endpoint) CallRemoteVia(iface, method string, args []any, forwarder string) (any, error) {
	return e.call(iface, method, args, &forwarder, nil)
}

// call allocates a reqID, registers a pending entry (carrying checker,
// if any, so resolvePending can validate the reply), sends the Call
// envelope, and blocks on a single-slot channel that
// resolvePending/rejectPending/drainPending all feed into — whichever
// of "immediate send failure", "later queued send failure", or "peer
// responded" happens first is the only one that ever writes to it.
func (e *Endpoint) call(iface, method string, args []any, fwdDest *string, checker ResultChecker) (any, error) {
	next := func() (any, error) {
		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			return nil, &RPCError{Code: CodeEndpointClosed, Mesg: "rpcmux: endpoint is closed"}
		}
		reqID := e.nextReqID()
		resultCh := make(chan callResult, 1)
		e.pending[reqID] = &pendingCall{ReqID: reqID, Iface: iface, Meth: method, ResultCh: resultCh, ResultChecker: checker}
		e.mu.Unlock()

		env := envelope.NewCall(&reqID, iface, method, args, fwdDest)
		e.queueOrSend(env)

		res := <-resultCh
		return res.Data, res.Err
	}

	if e.callWrapper != nil {
		return e.callWrapper(next)
	}
	return next()
}

// Close tears down the endpoint: every pending call is rejected with
// RPC_ENDPOINT_CLOSED, and further calls fail immediately instead of
// blocking forever.
func (e *Endpoint) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.drainPending(&RPCError{Code: CodeEndpointClosed, Mesg: "rpcmux: endpoint is closed"})
}
