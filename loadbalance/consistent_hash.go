package loadbalance

import (
	"fmt"
	"hash/crc32"
	"sort"
)

// ConsistentHashBalancer maps a routing key to an instance using a hash
// ring with virtual nodes — 100 virtual nodes per real instance keeps
// the ring statistically uniform even with only a handful of peers.
type ConsistentHashBalancer struct {
	replicas int
	ring     []uint32
	nodes    map[uint32]Instance
}

func NewConsistentHashBalancer() *ConsistentHashBalancer {
	return &ConsistentHashBalancer{
		replicas: 100,
		nodes:    make(map[uint32]Instance),
	}
}

// Add places instance onto the hash ring with b.replicas virtual
// copies. Call this once per known instance before PickKey.
func (b *ConsistentHashBalancer) Add(instance Instance) {
	for i := 0; i < b.replicas; i++ {
		key := fmt.Sprintf("%s#%d", instance.Addr, i)
		hash := crc32.ChecksumIEEE([]byte(key))
		b.ring = append(b.ring, hash)
		b.nodes[hash] = instance
	}
	sort.Slice(b.ring, func(i, j int) bool { return b.ring[i] < b.ring[j] })
}

// PickKey finds the instance responsible for key by hashing it and
// walking clockwise to the nearest node on the ring.
func (b *ConsistentHashBalancer) PickKey(key string) (*Instance, error) {
	if len(b.ring) == 0 {
		return nil, fmt.Errorf("loadbalance: no instances available")
	}
	hash := crc32.ChecksumIEEE([]byte(key))
	idx := sort.Search(len(b.ring), func(i int) bool { return b.ring[i] >= hash })
	if idx == len(b.ring) {
		idx = 0
	}
	inst := b.nodes[b.ring[idx]]
	return &inst, nil
}

// Pick satisfies the Balancer interface by hashing on the first
// instance's address found in instances — consistent hashing is
// inherently key-based, so callers that need real affinity should
// build the ring once and call PickKey directly instead.
func (b *ConsistentHashBalancer) Pick(instances []Instance) (*Instance, error) {
	if len(instances) == 0 {
		return nil, fmt.Errorf("loadbalance: no instances available")
	}
	for _, inst := range instances {
		b.Add(inst)
	}
	return b.PickKey(instances[0].Addr)
}

func (b *ConsistentHashBalancer) Name() string { return "ConsistentHash" }
