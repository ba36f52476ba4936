package mesh

import (
	"context"

	"rpcmux/codec"
	"rpcmux/endpoint"
	"rpcmux/loadbalance"
	"rpcmux/transport"
)

// Dial discovers iface's current advertisers through d, picks one with
// balancer, and returns a live Endpoint dialed and wired to it over
// TCP. Unlike a one-shot unary call, the Endpoint it hands back is
// reusable for as many calls as the caller wants to make.
//
// The caller still owns ep.Start(): Dial only gets as far as setSend,
// so anything the caller wants registered before the peer's first
// message arrives can still be registered first.
func Dial(ctx context.Context, d *Directory, iface string, balancer loadbalance.Balancer, codecType codec.Type) (*endpoint.Endpoint, error) {
	addr, err := d.Pick(ctx, iface, balancer)
	if err != nil {
		return nil, err
	}
	ep := endpoint.New(endpoint.Options{})
	if _, err := transport.DialTCP(ep, addr, codecType); err != nil {
		return nil, err
	}
	return ep, nil
}
