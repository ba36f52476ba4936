// Package transport wires an rpcmux/endpoint.Endpoint to a real TCP
// socket: it frames outgoing envelopes with rpcmux/protocol, encodes
// them with an rpcmux/codec.Codec, and feeds decoded frames back in
// through Endpoint.Receive. This is deliberately the only place in the
// module that imports net — the endpoint core has no idea a socket is
// even involved.
package transport

import (
	"net"
	"sync"

	"rpcmux/codec"
	"rpcmux/endpoint"
	"rpcmux/envelope"
	"rpcmux/protocol"
)

// Connect wires ep to conn using the given codec: ep.SetSend becomes a
// framed write to conn, and a background goroutine frames-decodes
// every incoming read into ep.Receive, until conn is closed or a frame
// fails to decode. Connect does not call ep.Start — the caller decides
// when the endpoint is ready, keeping SetSend and Start separate calls.
func Connect(ep *endpoint.Endpoint, conn net.Conn, codecType codec.Type) {
	var writeMu sync.Mutex
	cdc := codec.Get(codecType)

	ep.SetSend(func(env envelope.Envelope) error {
		body, err := cdc.Encode(env)
		if err != nil {
			return err
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		return protocol.Encode(conn, &protocol.Header{CodecType: byte(codecType), BodyLen: uint32(len(body))}, body)
	})

	go func() {
		for {
			header, body, err := protocol.Decode(conn)
			if err != nil {
				return
			}
			env, err := codec.Get(codec.Type(header.CodecType)).Decode(body)
			if err != nil {
				continue
			}
			ep.Receive(env)
		}
	}()
}

// DialTCP opens a TCP connection to addr and wires it to ep via
// Connect. The caller is still responsible for calling ep.Start once
// it has finished registering implementations and forwarders.
func DialTCP(ep *endpoint.Endpoint, addr string, codecType codec.Type) (net.Conn, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	Connect(ep, conn, codecType)
	return conn, nil
}

// Serve listens on addr and calls onAccept for each incoming connection
// with a freshly wired, not-yet-started Endpoint, so the caller decides
// what to register before starting it.
func Serve(addr string, codecType codec.Type, onAccept func(ep *endpoint.Endpoint, conn net.Conn)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		ep := endpoint.New(endpoint.Options{})
		Connect(ep, conn, codecType)
		go onAccept(ep, conn)
	}
}
