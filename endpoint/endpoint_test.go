package endpoint

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"rpcmux/envelope"
	"rpcmux/schema"
)

// wire connects two endpoints' Receive methods through their SetSend,
// an in-process loopback with no socket involved.
func wire(a, b *Endpoint) {
	a.SetSend(func(env envelope.Envelope) error {
		b.Receive(env)
		return nil
	})
	b.SetSend(func(env envelope.Envelope) error {
		a.Receive(env)
		return nil
	})
}

func TestEchoCall(t *testing.T) {
	a, b := New(Options{}), New(Options{})
	wire(a, b)

	if err := b.RegisterFunc("echo", func(args []any) (any, error) {
		return args[0], nil
	}); err != nil {
		t.Fatalf("RegisterFunc: %v", err)
	}
	a.Start()
	b.Start()

	got, err := a.CallRemote("echo", invokeMethod, []any{"hello"})
	if err != nil {
		t.Fatalf("CallRemote: %v", err)
	}
	if got != "hello" {
		t.Fatalf("got %v, want hello", got)
	}
}

func TestUnknownInterface(t *testing.T) {
	a, b := New(Options{}), New(Options{})
	wire(a, b)
	a.Start()
	b.Start()

	_, err := a.CallRemote("nope", invokeMethod, nil)
	var rerr *RPCError
	if !errors.As(err, &rerr) || rerr.Code != CodeUnknownInterface {
		t.Fatalf("expected RPC_UNKNOWN_INTERFACE, got %v", err)
	}
}

func TestInvalidArgsRejected(t *testing.T) {
	a, b := New(Options{}), New(Options{})
	wire(a, b)

	iface := func() ArgsChecker { return calcChecker{} }()
	if err := b.RegisterImpl("calc", func(method string, args []any) (any, error) {
		x, y := args[0].(int), args[1].(int)
		return x + y, nil
	}, iface); err != nil {
		t.Fatalf("RegisterImpl: %v", err)
	}
	a.Start()
	b.Start()

	_, err := a.CallRemote("calc", "add", []any{"not-a-number", 2})
	var rerr *RPCError
	if !errors.As(err, &rerr) || rerr.Code != CodeInvalidArgs {
		t.Fatalf("expected RPC_INVALID_ARGS, got %v", err)
	}
}

// calcChecker is a minimal hand-rolled ArgsChecker, standing in for a
// *schema.Interface to show that any ArgsChecker implementation works.
type calcChecker struct{}

func (calcChecker) HasMethod(method string) bool { return method == "add" }
func (calcChecker) CheckArgs(method string, args []any) error {
	if len(args) < 2 {
		return errors.New("value.y is missing")
	}
	if _, ok := args[0].(int); !ok {
		return errors.New("value.x is not a number")
	}
	return nil
}

func TestForwardingChain(t *testing.T) {
	// a -> mid -> b, mid forwards everything addressed to "b" onward
	// unchanged (wildcard policy).
	a, mid, b := New(Options{}), New(Options{}), New(Options{})

	mid.SetSend(func(env envelope.Envelope) error { a.Receive(env); return nil })
	a.SetSend(func(env envelope.Envelope) error { mid.Receive(env); return nil })
	if err := mid.RegisterForwarder("b", b, wildcardFwdDest); err != nil {
		t.Fatalf("RegisterForwarder: %v", err)
	}
	b.SetSend(func(env envelope.Envelope) error { mid.Receive(env); return nil })

	if err := b.RegisterFunc("greet", func(args []any) (any, error) {
		return "hi " + args[0].(string), nil
	}); err != nil {
		t.Fatalf("RegisterFunc: %v", err)
	}
	a.Start()
	mid.Start()
	b.Start()

	got, err := a.CallRemoteVia("greet", invokeMethod, []any{"sam"}, "b")
	if err != nil {
		t.Fatalf("CallRemoteVia: %v", err)
	}
	if got != "hi sam" {
		t.Fatalf("got %v, want 'hi sam'", got)
	}
}

func TestUnknownForwardDest(t *testing.T) {
	a, mid := New(Options{}), New(Options{})
	a.SetSend(func(env envelope.Envelope) error { mid.Receive(env); return nil })
	mid.SetSend(func(env envelope.Envelope) error { a.Receive(env); return nil })
	a.Start()
	mid.Start()

	_, err := a.CallRemoteVia("whatever", invokeMethod, nil, "ghost")
	var rerr *RPCError
	if !errors.As(err, &rerr) || rerr.Code != CodeUnknownForwardDest {
		t.Fatalf("expected RPC_UNKNOWN_FORWARD_DEST, got %v", err)
	}
}

func TestSendFailureDuringDrainRejectsPendingCall(t *testing.T) {
	a := New(Options{})
	// No send function installed yet: the call's envelope queues rather
	// than attempting to go out, until SetSend installs one that fails.
	resultCh := make(chan error, 1)
	go func() {
		_, err := a.CallRemote("x", invokeMethod, nil)
		resultCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	a.ProcessIncoming()
	a.SetSend(func(envelope.Envelope) error { return errors.New("no transport") })

	select {
	case err := <-resultCh:
		var rerr *RPCError
		if !errors.As(err, &rerr) {
			t.Fatalf("expected *RPCError, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("CallRemote never returned")
	}
}

func TestCallMissingReqIDSurfacesAsError(t *testing.T) {
	a := New(Options{})
	var gotErr error
	a.OnError(func(err error) { gotErr = err })
	a.SetSend(func(envelope.Envelope) error { return nil })
	a.Start()

	a.Receive(envelope.NewCall(nil, "x", invokeMethod, nil, nil))

	if gotErr == nil {
		t.Fatal("expected the error listener to fire")
	}
	var rerr *RPCError
	if !errors.As(gotErr, &rerr) || rerr.Code != CodeMissingReqID {
		t.Fatalf("expected RPC_MISSING_REQID, got %v", gotErr)
	}
}

func TestPostDeliversAsMessageEvent(t *testing.T) {
	a, b := New(Options{}), New(Options{})
	wire(a, b)

	received := make(chan envelope.Envelope, 1)
	b.OnMessage(func(env envelope.Envelope) { received <- env })
	a.Start()
	b.Start()

	if err := a.Post("hello"); err != nil {
		t.Fatalf("Post: %v", err)
	}
	select {
	case env := <-received:
		if env.Data != "hello" {
			t.Fatalf("got %v, want hello", env.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("message event never fired")
	}
}

func TestStubMethodCall(t *testing.T) {
	a, b := New(Options{}), New(Options{})
	wire(a, b)
	if err := b.RegisterFunc("math", func(args []any) (any, error) {
		return args[0].(int) + args[1].(int), nil
	}); err != nil {
		t.Fatalf("RegisterFunc: %v", err)
	}
	a.Start()
	b.Start()

	stub := a.GetStub("math")
	got, err := stub.Method(invokeMethod)(2, 3)
	if err != nil {
		t.Fatalf("stub call: %v", err)
	}
	if got != 5 {
		t.Fatalf("got %v, want 5", got)
	}
}

func TestSchemaInterfaceAsChecker(t *testing.T) {
	a, b := New(Options{}), New(Options{})
	wire(a, b)

	iface := schema.NewInterface("ICalc", schema.Method{
		Name: "add",
		Params: []schema.Param{
			{Name: "x", Kind: schema.KindNumber},
			{Name: "y", Kind: schema.KindNumber},
		},
	})
	if err := b.RegisterImpl("calc", func(method string, args []any) (any, error) {
		return args[0].(int) + args[1].(int), nil
	}, iface); err != nil {
		t.Fatalf("RegisterImpl: %v", err)
	}
	a.Start()
	b.Start()

	got, err := a.CallRemote("calc", "add", []any{1, 2})
	if err != nil {
		t.Fatalf("CallRemote: %v", err)
	}
	if got != 3 {
		t.Fatalf("got %v, want 3", got)
	}

	_, err = a.CallRemote("calc", "add", []any{"not-a-number", 2})
	var rerr *RPCError
	if !errors.As(err, &rerr) || rerr.Code != CodeInvalidArgs {
		t.Fatalf("expected RPC_INVALID_ARGS, got %v", err)
	}
}

func TestForwardDestFallsBackToWildcard(t *testing.T) {
	// mid has no forwarder registered under the exact name "b", only
	// under the wildcard "*", which must still catch a Call addressed
	// to "b".
	a, mid, b := New(Options{}), New(Options{}), New(Options{})

	mid.SetSend(func(env envelope.Envelope) error { a.Receive(env); return nil })
	a.SetSend(func(env envelope.Envelope) error { mid.Receive(env); return nil })
	if err := mid.RegisterForwarder(wildcardFwdDest, b, wildcardFwdDest); err != nil {
		t.Fatalf("RegisterForwarder: %v", err)
	}
	b.SetSend(func(env envelope.Envelope) error { mid.Receive(env); return nil })

	if err := b.RegisterFunc("greet", func(args []any) (any, error) {
		return "hi " + args[0].(string), nil
	}); err != nil {
		t.Fatalf("RegisterFunc: %v", err)
	}
	a.Start()
	mid.Start()
	b.Start()

	got, err := a.CallRemoteVia("greet", invokeMethod, []any{"sam"}, "b")
	if err != nil {
		t.Fatalf("CallRemoteVia: %v", err)
	}
	if got != "hi sam" {
		t.Fatalf("got %v, want 'hi sam'", got)
	}
}

func TestSetSendDrainsAndStopsAtFirstFailure(t *testing.T) {
	a := New(Options{})

	var delivered []string
	if err := a.Post("x"); err != nil {
		t.Fatalf("Post x: %v", err)
	}
	if err := a.Post("y"); err != nil {
		t.Fatalf("Post y: %v", err)
	}
	if err := a.Post("z"); err != nil {
		t.Fatalf("Post z: %v", err)
	}

	failing := a.SetSend(func(env envelope.Envelope) error {
		data, _ := env.Data.(string)
		if data == "y" {
			return errors.New("boom")
		}
		delivered = append(delivered, data)
		return nil
	})
	if failing == nil {
		t.Fatal("expected SetSend to return the failure from draining y")
	}
	if len(delivered) != 1 || delivered[0] != "x" {
		t.Fatalf("expected only x delivered before the failure, got %v", delivered)
	}

	working := a.SetSend(func(env envelope.Envelope) error {
		data, _ := env.Data.(string)
		delivered = append(delivered, data)
		return nil
	})
	if working != nil {
		t.Fatalf("expected the second SetSend to drain cleanly, got %v", working)
	}
	if len(delivered) != 2 || delivered[1] != "z" {
		t.Fatalf("expected z to drain on the next SetSend, got %v", delivered)
	}
}

func TestQueueOutgoingUntilReadyGatesOnPeerReady(t *testing.T) {
	a, b := New(Options{}), New(Options{})
	a.SetSend(func(env envelope.Envelope) error { b.Receive(env); return nil })
	b.SetSend(func(env envelope.Envelope) error { a.Receive(env); return nil })

	received := make(chan envelope.Envelope, 1)
	b.OnMessage(func(env envelope.Envelope) { received <- env })

	a.QueueOutgoingUntilReady()
	a.ProcessIncoming()
	b.ProcessIncoming()

	if err := a.Post("too-early"); err != nil {
		t.Fatalf("Post: %v", err)
	}
	select {
	case env := <-received:
		t.Fatalf("message delivered before Ready: %v", env.Data)
	case <-time.After(50 * time.Millisecond):
	}

	if err := b.SendReady(); err != nil {
		t.Fatalf("SendReady: %v", err)
	}

	select {
	case env := <-received:
		if env.Data != "too-early" {
			t.Fatalf("got %v, want too-early", env.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("message never delivered after Ready")
	}
}

func TestCheckedStubRejectsInvalidResult(t *testing.T) {
	a, b := New(Options{}), New(Options{})
	wire(a, b)

	type sumResult struct {
		Sum int `validate:"gt=0"`
	}
	iface := schema.NewInterface("calc", schema.Method{
		Name:   "add",
		Params: []schema.Param{{Name: "x", Kind: schema.KindNumber}, {Name: "y", Kind: schema.KindNumber}},
		Result: &schema.Result{Type: reflect.TypeOf(sumResult{})},
	})
	if err := b.RegisterImpl("calc", func(method string, args []any) (any, error) {
		return map[string]any{"Sum": args[0].(int) + args[1].(int)}, nil
	}, iface); err != nil {
		t.Fatalf("RegisterImpl: %v", err)
	}
	a.Start()
	b.Start()

	stub := a.GetStub("calc", iface)

	_, err := stub.Method("add")(-2, 1)
	var rerr *RPCError
	if !errors.As(err, &rerr) || rerr.Code != CodeInvalidResult {
		t.Fatalf("expected RPC_INVALID_RESULT, got %v", err)
	}

	got, err := stub.Method("add")(2, 3)
	if err != nil {
		t.Fatalf("stub call: %v", err)
	}
	if sum, ok := got.(map[string]any)["Sum"]; !ok || sum != 5 {
		t.Fatalf("got %v, want Sum=5", got)
	}
}

func TestCloseRejectsPendingCalls(t *testing.T) {
	a := New(Options{})
	a.SetSend(func(envelope.Envelope) error { return nil })
	a.Start()

	resultCh := make(chan error, 1)
	go func() {
		_, err := a.CallRemote("never-replies", invokeMethod, nil)
		resultCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	a.Close()

	select {
	case err := <-resultCh:
		var rerr *RPCError
		if !errors.As(err, &rerr) || rerr.Code != CodeEndpointClosed {
			t.Fatalf("expected RPC_ENDPOINT_CLOSED, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("CallRemote never returned after Close")
	}
}
