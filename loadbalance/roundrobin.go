package loadbalance

import (
	"fmt"
	"sync/atomic"
)

// RoundRobinBalancer distributes picks evenly across instances in
// order, using an atomic counter for lock-free, goroutine-safe
// operation.
type RoundRobinBalancer struct {
	counter int64
}

func (b *RoundRobinBalancer) Pick(instances []Instance) (*Instance, error) {
	if len(instances) == 0 {
		return nil, fmt.Errorf("loadbalance: no instances available")
	}
	index := atomic.AddInt64(&b.counter, 1) % int64(len(instances))
	return &instances[index], nil
}

func (b *RoundRobinBalancer) Name() string { return "RoundRobin" }
