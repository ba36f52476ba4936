package endpoint

// callResult is what a pending call eventually resolves to. Exactly one
// of Data or Err is meaningful, mirroring the RespData/RespErr split in
// the wire envelope.
type callResult struct {
	Data any
	Err  error
}

// ResultChecker is the capability a checked stub's result validation
// needs: given the method name and the decoded reply data, report
// whether it matches the method's declared result shape.
// *schema.Interface satisfies this.
type ResultChecker interface {
	CheckResult(method string, data any) error
}

// pendingCall is one outstanding callRemote/callRemoteVia waiting on a
// reqID. ResultCh is always buffered with capacity 1 so the resolver —
// whether resolvePending on a real reply, or rejectPending on a send
// failure — never blocks delivering it, regardless of whether the
// caller's goroutine is still listening. Every pending entry is
// resolved or rejected exactly once, then removed. ResultChecker is nil
// for a call made through an unchecked stub or through CallRemote
// directly.
type pendingCall struct {
	ReqID         int64
	Iface         string
	Meth          string
	ResultCh      chan callResult
	ResultChecker ResultChecker
}

// resolvePending delivers data to the pending call registered under
// reqID, if any, first running it through the call's result checker if
// one was supplied. A result that fails that check rejects the call
// with RPC_INVALID_RESULT instead of resolving it. An unknown reqID is
// logged and dropped — the peer may have replied to a call this
// endpoint already gave up on.
func (e *Endpoint) resolvePending(reqID int64, data any) {
	e.mu.Lock()
	pc, ok := e.pending[reqID]
	if ok {
		delete(e.pending, reqID)
	}
	e.mu.Unlock()
	if !ok {
		e.warnUnknownReqID(reqID)
		return
	}
	if pc.ResultChecker != nil {
		if err := pc.ResultChecker.CheckResult(pc.Meth, data); err != nil {
			pc.ResultCh <- callResult{Err: &RPCError{Code: CodeInvalidResult, Mesg: err.Error()}}
			return
		}
	}
	pc.ResultCh <- callResult{Data: data}
}

// rejectPending delivers err to the pending call registered under
// reqID, if any. An unknown reqID is logged and dropped.
func (e *Endpoint) rejectPending(reqID int64, err error) {
	e.mu.Lock()
	pc, ok := e.pending[reqID]
	if ok {
		delete(e.pending, reqID)
	}
	e.mu.Unlock()
	if !ok {
		e.warnUnknownReqID(reqID)
		return
	}
	pc.ResultCh <- callResult{Err: err}
}

// warnUnknownReqID logs a response that names a reqID with no matching
// pending call — a late reply after this endpoint stopped waiting, or a
// peer bug.
func (e *Endpoint) warnUnknownReqID(reqID int64) {
	e.mu.Lock()
	logger := e.logger
	e.mu.Unlock()
	if logger != nil {
		logger.Warn("rpcmux: "+CodeUnknownReqID, "reqId", reqID)
	}
}

// drainPending rejects every outstanding call with err, so a torn-down
// endpoint never leaves a caller blocked forever.
func (e *Endpoint) drainPending(err error) {
	e.mu.Lock()
	stale := e.pending
	e.pending = make(map[int64]*pendingCall)
	e.mu.Unlock()
	for _, pc := range stale {
		pc.ResultCh <- callResult{Err: err}
	}
}

// nextReqID returns a fresh, monotonically increasing request id. Must
// be called with e.mu held.
func (e *Endpoint) nextReqID() int64 {
	e.reqSeq++
	return e.reqSeq
}
