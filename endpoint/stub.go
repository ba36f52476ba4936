package endpoint

// Stub is a typed-less proxy bound to one interface (and optionally one
// forwarder hop, and a result checker) whose Method closures behave
// like calling the remote method directly. Go has no dynamic property
// access, so instead of writing stub.someMethod(...), a caller writes
// stub.Method("someMethod")(...) — the closure it returns is otherwise
// indistinguishable from a bound remote method.
type Stub struct {
	e         *Endpoint
	iface     string
	forwarder string
	checker   ResultChecker
}

// GetStub returns a stub for name, honoring "iface@forwarder" sugar. An
// optional checker validates every reply this stub's methods receive
// before resolving the call, rejecting with RPC_INVALID_RESULT on a
// mismatch. *schema.Interface satisfies ResultChecker.
func (e *Endpoint) GetStub(name string, checker ...ResultChecker) *Stub {
	iface, forwarder, _ := splitForwarderSugar(name)
	return &Stub{e: e, iface: iface, forwarder: forwarder, checker: firstChecker(checker)}
}

// GetStubVia returns a stub for iface, always routed through forwarder
// regardless of any '@' sugar embedded in iface.
func (e *Endpoint) GetStubVia(iface, forwarder string, checker ...ResultChecker) *Stub {
	return &Stub{e: e, iface: iface, forwarder: forwarder, checker: firstChecker(checker)}
}

// firstChecker returns the first checker in c, or nil if c is empty —
// the Go stand-in for an optional trailing parameter.
func firstChecker(c []ResultChecker) ResultChecker {
	if len(c) == 0 {
		return nil
	}
	return c[0]
}

// Method returns a closure that calls method on the stub's interface
// with args, blocking until the peer replies and running the stub's
// checker (if any) against the result.
func (s *Stub) Method(method string) func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		var fwdDest *string
		if s.forwarder != "" {
			fwdDest = &s.forwarder
		}
		return s.e.call(s.iface, method, args, fwdDest, s.checker)
	}
}
