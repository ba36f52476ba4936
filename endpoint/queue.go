package endpoint

import (
	"fmt"

	"rpcmux/envelope"
)

// safeSend calls the transport's SendFunc, unifying a returned error
// and a panic into the same failure path. SendFunc has no separate
// async form, so the only thing left to unify is a panic escaping the
// caller-supplied function.
func (e *Endpoint) safeSend(env envelope.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rpcmux: send panicked: %v", r)
		}
	}()
	send := e.sendFn
	if send == nil {
		return &RPCError{Code: CodeEndpointClosed, Mesg: "rpcmux: no send function configured"}
	}
	return send(env)
}

// isReadyLocked reports whether outbound envelopes may be sent
// immediately rather than queued: a send function must be installed,
// and nothing may be gating traffic on the peer's Ready. Callers must
// hold e.mu.
func (e *Endpoint) isReadyLocked() bool {
	return e.sendFn != nil && !e.awaitingReady
}

// SetSend installs (or, passed nil, clears) the transport's outbound
// function. If the endpoint is ready once fn is installed, SetSend
// drains the outbound queue itself and returns the first failure it
// hits, the same way the initial drain at Start does — draining does
// not wait for a later Start call. A draining failure consumes the
// envelope that failed; the remainder of the queue is left for the
// next SetSend (or Start) to retry.
func (e *Endpoint) SetSend(fn SendFunc) error {
	e.mu.Lock()
	e.sendFn = fn
	ready := e.isReadyLocked()
	e.mu.Unlock()
	if !ready {
		return nil
	}
	return e.drainOutbound()
}

// drainOutbound sends every envelope currently queued, in order,
// stopping at the first failure. Each envelope is popped off the queue
// before it is sent, so a failed send is treated as consumed and is
// never retried — only the envelopes still behind it survive for the
// next drain attempt.
func (e *Endpoint) drainOutbound() error {
	for {
		e.mu.Lock()
		if !e.isReadyLocked() || len(e.outQueue) == 0 {
			e.mu.Unlock()
			return nil
		}
		env := e.outQueue[0]
		e.outQueue = e.outQueue[1:]
		e.mu.Unlock()

		if err := e.safeSend(env); err != nil {
			e.failSend(env, err)
			return err
		}
	}
}

// QueueIncoming suspends inbound dispatch: envelopes passed to Receive
// are appended to the inbound queue instead of being dispatched
// immediately, preserving arrival order until ProcessIncoming resumes
// it. This lets a caller register implementations or forwarders after
// Receive has already started being called, without racing the first
// envelope that might need them.
func (e *Endpoint) QueueIncoming() {
	e.mu.Lock()
	e.inboundSuspended = true
	e.mu.Unlock()
}

// ProcessIncoming resumes inbound dispatch, first draining whatever
// queued up while suspended, in the order it arrived.
func (e *Endpoint) ProcessIncoming() {
	e.mu.Lock()
	e.inboundSuspended = false
	queued := e.inQueue
	e.inQueue = nil
	e.mu.Unlock()

	for _, env := range queued {
		e.dispatch(env)
	}
}

// QueueOutgoingUntilReady gates this endpoint's own outbound traffic on
// the peer's Ready envelope: everything sent before then queues instead
// of going out, and is drained once the peer's Ready arrives. Calling
// SendReady on this endpoint does not lift the gate: it only tells the
// peer that this side is ready. Only one side of a pair should gate this way —
// gating both sides deadlocks, since neither's Ready is ever sent.
func (e *Endpoint) QueueOutgoingUntilReady() {
	e.mu.Lock()
	e.awaitingReady = true
	e.mu.Unlock()
}

// SendReady announces to the peer that this endpoint is ready to
// receive further envelopes. Start sends this automatically; SendReady
// exists for a caller that is driving QueueOutgoingUntilReady and
// ProcessIncoming itself instead of going through Start.
func (e *Endpoint) SendReady() error {
	if err := e.safeSend(envelope.NewReady()); err != nil {
		e.emitError(err)
		return err
	}
	return nil
}

// Start is the one-call convenience over ProcessIncoming, draining the
// outbound queue, and SendReady: it resumes inbound dispatch (flushing
// anything Receive queued before this call), flushes any envelope
// queued by Post/PostVia/CallRemote before a send function existed, and
// then announces readiness to the peer.
func (e *Endpoint) Start() {
	e.ProcessIncoming()
	_ = e.drainOutbound()
	_ = e.SendReady()
}

// queueOrSend sends env immediately if the endpoint is ready, or
// appends it to the outgoing queue otherwise.
func (e *Endpoint) queueOrSend(env envelope.Envelope) error {
	e.mu.Lock()
	if !e.isReadyLocked() {
		e.outQueue = append(e.outQueue, env)
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()
	if err := e.safeSend(env); err != nil {
		e.failSend(env, err)
		return err
	}
	return nil
}

// failSend routes a send failure to whatever is waiting on env: a
// pending call gets rejected directly, exactly as a real RespErr would
// resolve it; anything else — a Custom post, a reply, the handshake —
// only has the error event to surface on.
func (e *Endpoint) failSend(env envelope.Envelope, err error) {
	if env.Mtype == envelope.Call && env.ReqID != nil {
		e.rejectPending(*env.ReqID, &RPCError{Code: CodeSendFailed, Mesg: err.Error()})
		return
	}
	e.emitError(err)
}

// Receive is the transport's single inbound entry point. While inbound
// dispatch is suspended (the default until ProcessIncoming or Start
// runs), envelopes are queued rather than dispatched.
func (e *Endpoint) Receive(env envelope.Envelope) {
	e.mu.Lock()
	if e.inboundSuspended {
		e.inQueue = append(e.inQueue, env)
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	e.dispatch(env)
}
