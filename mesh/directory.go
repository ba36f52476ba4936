// Package mesh provides peer discovery for endpoints that want to find
// each other without a hardcoded address: an endpoint that implements
// an interface advertises it, and an endpoint that wants to call it
// discovers the current set of addresses.
//
// This is deliberately NOT a distance-vector routing node — mesh
// answers "who currently serves interface X", never "what's the best
// multi-hop path to X". A Forwarder (rpcmux/endpoint) still owns every
// actual hop.
//
// Advertisements live in etcd with a TTL lease, a distributed-phonebook
// design: if an endpoint crashes without deregistering, its lease
// expires and the entry disappears on its own.
package mesh

import (
	"context"
	"encoding/json"

	clientv3 "go.etcd.io/etcd/client/v3"

	"rpcmux/loadbalance"
)

// Advertisement is one endpoint's claim to serve an interface.
type Advertisement struct {
	Addr    string
	Weight  int
	Version string
}

// Directory is the etcd-backed advertise/discover surface.
type Directory struct {
	client *clientv3.Client
	prefix string
}

// NewDirectory connects to the given etcd endpoints. prefix namespaces
// keys so more than one mesh can share a cluster, e.g. "/rpcmux".
func NewDirectory(endpoints []string, prefix string) (*Directory, error) {
	c, err := clientv3.New(clientv3.Config{Endpoints: endpoints})
	if err != nil {
		return nil, err
	}
	return &Directory{client: c, prefix: prefix}, nil
}

func (d *Directory) key(iface, addr string) string {
	return d.prefix + "/" + iface + "/" + addr
}

// Advertise registers addr as serving iface, refreshed by a TTL lease
// (seconds) that this call keeps alive in the background for as long
// as ctx is not cancelled.
func (d *Directory) Advertise(ctx context.Context, iface string, ad Advertisement, ttl int64) error {
	lease, err := d.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}
	val, err := json.Marshal(ad)
	if err != nil {
		return err
	}
	if _, err := d.client.Put(ctx, d.key(iface, ad.Addr), string(val), clientv3.WithLease(lease.ID)); err != nil {
		return err
	}
	ch, err := d.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}
	go func() {
		for range ch {
		}
	}()
	return nil
}

// Withdraw removes addr's advertisement for iface, used on graceful
// shutdown before the TTL would otherwise expire it.
func (d *Directory) Withdraw(ctx context.Context, iface, addr string) error {
	_, err := d.client.Delete(ctx, d.key(iface, addr))
	return err
}

// Discover returns every currently advertised address for iface.
func (d *Directory) Discover(ctx context.Context, iface string) ([]Advertisement, error) {
	resp, err := d.client.Get(ctx, d.prefix+"/"+iface+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	ads := make([]Advertisement, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var ad Advertisement
		if err := json.Unmarshal(kv.Value, &ad); err != nil {
			continue
		}
		ads = append(ads, ad)
	}
	return ads, nil
}

// Watch streams the full, refreshed address list for iface whenever
// etcd reports any change under its prefix.
func (d *Directory) Watch(ctx context.Context, iface string) <-chan []Advertisement {
	out := make(chan []Advertisement, 1)
	go func() {
		watchChan := d.client.Watch(ctx, d.prefix+"/"+iface+"/", clientv3.WithPrefix())
		for range watchChan {
			ads, err := d.Discover(ctx, iface)
			if err != nil {
				continue
			}
			out <- ads
		}
	}()
	return out
}

// Pick discovers iface's current advertisers and hands them to
// balancer, returning the address balancer selects.
func (d *Directory) Pick(ctx context.Context, iface string, balancer loadbalance.Balancer) (string, error) {
	ads, err := d.Discover(ctx, iface)
	if err != nil {
		return "", err
	}
	instances := make([]loadbalance.Instance, len(ads))
	for i, ad := range ads {
		instances[i] = loadbalance.Instance{Addr: ad.Addr, Weight: ad.Weight, Version: ad.Version}
	}
	inst, err := balancer.Pick(instances)
	if err != nil {
		return "", err
	}
	return inst.Addr, nil
}
