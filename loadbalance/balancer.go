// Package loadbalance provides strategies for picking one of several
// peers advertising the same interface (see rpcmux/mesh).
//
// Three strategies are implemented:
//   - RoundRobin:      stateless peers, equal capacity
//   - WeightedRandom:  heterogeneous peers
//   - ConsistentHash:  peers that benefit from routing affinity
package loadbalance

// Instance is everything a balancer needs to know about one candidate
// peer: where to reach it, how much traffic it can take relative to its
// siblings, and which build it's running.
type Instance struct {
	Addr    string
	Weight  int
	Version string
}

// Balancer picks one instance from a set of candidates. Pick is called
// on every mesh.Dial — implementations must be goroutine-safe.
type Balancer interface {
	Pick(instances []Instance) (*Instance, error)
	Name() string
}
