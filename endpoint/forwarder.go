package endpoint

import "fmt"

// Forwarder is a registered name that, when addressed as a message's
// fwdDest, hands the (rewritten) envelope to Peer instead of dispatching
// it locally. FwdDest is the forwarder's own rewrite policy, applied to
// the outgoing envelope before handoff — "*" passes the envelope's
// existing fwdDest through untouched, any other string (including "")
// replaces it.
type Forwarder struct {
	Name    string
	Peer    *Endpoint
	FwdDest string
}

// wildcardFwdDest is the sentinel forwarding policy that leaves an
// envelope's fwdDest exactly as the sender set it.
const wildcardFwdDest = "*"

// RegisterForwarder adds name to the forwarding table, handing off to
// peer with the given rewrite policy.
func (e *Endpoint) RegisterForwarder(name string, peer *Endpoint, fwdDest string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.forwarders[name]; exists {
		return fmt.Errorf("rpcmux: forwarder %q already registered", name)
	}
	e.forwarders[name] = &Forwarder{Name: name, Peer: peer, FwdDest: fwdDest}
	return nil
}

// UnregisterForwarder removes a previously registered forwarder.
func (e *Endpoint) UnregisterForwarder(name string) {
	e.mu.Lock()
	delete(e.forwarders, name)
	e.mu.Unlock()
}

// rewriteFwdDest applies a forwarder's policy to an inbound envelope's
// fwdDest before it is handed to fwd.Peer.
func rewriteFwdDest(fwd *Forwarder, incoming *string) *string {
	if fwd.FwdDest == wildcardFwdDest {
		return incoming
	}
	dest := fwd.FwdDest
	return &dest
}
