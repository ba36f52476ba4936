package endpoint

import "rpcmux/envelope"

// OnMessage registers a listener invoked for every Custom envelope that
// reaches this endpoint. Ready envelopes never reach it — they are
// consumed internally to drive the outbound-queue handshake.
func (e *Endpoint) OnMessage(fn func(envelope.Envelope)) {
	e.mu.Lock()
	e.msgListeners = append(e.msgListeners, fn)
	e.mu.Unlock()
}

// OnError registers a listener invoked for every local protocol error
// this endpoint surfaces that cannot be delivered as a reply — a send
// failure, an unknown forward destination on a non-Call envelope, a
// Call received with no reqId.
func (e *Endpoint) OnError(fn func(error)) {
	e.mu.Lock()
	e.errListeners = append(e.errListeners, fn)
	e.mu.Unlock()
}

// emitMessage and emitError always release e.mu before invoking any
// listener, so a listener that calls back into the endpoint (e.g.
// Post) never deadlocks.
func (e *Endpoint) emitMessage(env envelope.Envelope) {
	e.mu.Lock()
	listeners := append([]func(envelope.Envelope){}, e.msgListeners...)
	e.mu.Unlock()
	for _, fn := range listeners {
		fn(env)
	}
}

func (e *Endpoint) emitError(err error) {
	e.mu.Lock()
	listeners := append([]func(error){}, e.errListeners...)
	logger := e.logger
	e.mu.Unlock()
	if logger != nil && len(listeners) == 0 {
		logger.Warn("rpcmux: unhandled endpoint error", "err", err)
	}
	for _, fn := range listeners {
		fn(err)
	}
}
