package loadbalance

import (
	"fmt"
	"math/rand"
)

// WeightedRandomBalancer picks an instance at random, weighted by each
// instance's declared Weight.
type WeightedRandomBalancer struct{}

func (b *WeightedRandomBalancer) Pick(instances []Instance) (*Instance, error) {
	if len(instances) == 0 {
		return nil, fmt.Errorf("loadbalance: no instances available")
	}

	total := 0
	for _, v := range instances {
		total += v.Weight
	}
	if total <= 0 {
		return &instances[rand.Intn(len(instances))], nil
	}

	r := rand.Intn(total)
	for i := range instances {
		r -= instances[i].Weight
		if r < 0 {
			return &instances[i], nil
		}
	}
	return nil, fmt.Errorf("loadbalance: unexpected error in weighted random selection")
}

func (b *WeightedRandomBalancer) Name() string { return "WeightedRandom" }
