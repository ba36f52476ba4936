package endpoint

import (
	"rpcmux/envelope"
)

// dispatch routes one inbound envelope: forwarding takes precedence
// over local handling for every tag, not just Call, so a forwarded
// Custom or response envelope is relayed exactly like a forwarded Call.
func (e *Endpoint) dispatch(env envelope.Envelope) {
	if env.FwdDest != nil && *env.FwdDest != "" {
		e.forward(env)
		return
	}

	switch env.Mtype {
	case envelope.Call:
		e.handleCall(env)
	case envelope.RespData:
		if env.ReqID != nil {
			e.resolvePending(*env.ReqID, env.Data)
		}
	case envelope.RespErr:
		if env.ReqID != nil {
			e.rejectPending(*env.ReqID, &RPCError{Code: env.Code, Mesg: env.Mesg})
		}
	case envelope.Custom:
		e.emitMessage(env)
	case envelope.Ready:
		e.handleReady()
	}
}

// handleReady processes an inbound Ready: it clears the local
// awaitingReady gate and drains whatever queued up behind it, swallowing
// any draining error since drainOutbound already surfaced it on the
// error event. Ready never reaches OnMessage — it is purely a
// handshake signal between the two endpoints' queueing machinery.
func (e *Endpoint) handleReady() {
	e.mu.Lock()
	e.awaitingReady = false
	e.mu.Unlock()
	_ = e.drainOutbound()
}

// forward looks up env's fwdDest in the forwarder table, falling back to
// a forwarder registered under the wildcard name if no exact match
// exists, and, if found, rewrites the envelope per the forwarder's own
// policy and hands it to the peer endpoint. An unknown forwarder name is
// a local protocol error: a Call gets an RPC_UNKNOWN_FORWARD_DEST reply,
// anything else surfaces only on the error event.
func (e *Endpoint) forward(env envelope.Envelope) {
	e.mu.Lock()
	fwd, ok := e.forwarders[*env.FwdDest]
	if !ok {
		fwd, ok = e.forwarders[wildcardFwdDest]
	}
	e.mu.Unlock()

	if !ok {
		err := &RPCError{Code: CodeUnknownForwardDest, Mesg: "rpcmux: unknown forward destination " + *env.FwdDest}
		if env.Mtype == envelope.Call && env.ReqID != nil {
			e.replyErr(*env.ReqID, err)
		} else {
			e.emitError(err)
		}
		return
	}

	rewritten := env
	rewritten.FwdDest = rewriteFwdDest(fwd, env.FwdDest)
	fwd.Peer.Receive(rewritten)
}

// handleCall resolves the interface (rejecting an absent interface or
// method), validates arguments against its schema if any, invokes the
// implementation, then replies with RespData or RespErr. A Call with no
// reqID cannot be replied to over the wire at all — RespErr itself
// requires a reqID to correlate — so it is treated as a local protocol
// error and surfaced only via the error event, never dispatched to an
// implementation.
func (e *Endpoint) handleCall(env envelope.Envelope) {
	if env.ReqID == nil {
		e.emitError(&RPCError{Code: CodeMissingReqID, Mesg: "rpcmux: call received with no reqId"})
		return
	}
	reqID := *env.ReqID

	e.mu.Lock()
	impl, ok := e.impls[env.Iface]
	e.mu.Unlock()

	if !ok {
		e.replyErr(reqID, &RPCError{Code: CodeUnknownInterface, Mesg: "rpcmux: unknown interface " + env.Iface})
		return
	}
	if impl.Checker != nil {
		if !impl.Checker.HasMethod(env.Meth) {
			e.replyErr(reqID, &RPCError{Code: CodeUnknownMethod, Mesg: "rpcmux: unknown method " + env.Meth})
			return
		}
		if err := impl.Checker.CheckArgs(env.Meth, env.Args); err != nil {
			e.replyErr(reqID, &RPCError{Code: CodeInvalidArgs, Mesg: err.Error()})
			return
		}
	}

	data, err := impl.Invoke(env.Meth, env.Args)
	if err != nil {
		e.replyErr(reqID, err)
		return
	}
	if err := e.queueOrSend(envelope.NewRespData(reqID, data)); err != nil {
		e.emitError(err)
	}
}

// replyErr sends a RespErr envelope for reqID, preserving an *RPCError's
// code or falling back to an empty one for an arbitrary error returned
// by an implementation.
func (e *Endpoint) replyErr(reqID int64, err error) {
	code := ""
	if rerr, ok := err.(*RPCError); ok {
		code = rerr.Code
	}
	if sendErr := e.queueOrSend(envelope.NewRespErr(reqID, err.Error(), code)); sendErr != nil {
		e.emitError(sendErr)
	}
}
