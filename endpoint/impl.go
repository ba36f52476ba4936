package endpoint

import (
	"fmt"
	"reflect"
)

// Invoker is the callable half of an implementation record: given a
// method name and its positional arguments, produce a result or an
// error. The endpoint awaits nothing extra here — Go has no separate
// "future of any" type, a direct (any, error) return models both the
// synchronous and the eventually-resolved case identically.
type Invoker func(method string, args []any) (any, error)

// ArgsChecker is the capability an Implementation's optional schema
// must provide: enumerate whether a method exists, and validate its
// argument tuple. *schema.Interface satisfies this.
type ArgsChecker interface {
	HasMethod(method string) bool
	CheckArgs(method string, args []any) error
}

// Implementation is a registered interface's callable plus its optional
// argument checker. Checker is nil for an untyped implementation —
// RegisterImpl without a schema accepts any object.
type Implementation struct {
	Name    string
	Invoke  Invoker
	Checker ArgsChecker
}

// RegisterImpl binds name to invoke, optionally validated by checker.
// Duplicate registration is a local programming error, reported
// synchronously by returning a non-nil error at the call site.
func (e *Endpoint) RegisterImpl(name string, invoke Invoker, checker ArgsChecker) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.impls[name]; exists {
		return fmt.Errorf("rpcmux: interface %q already registered", name)
	}
	e.impls[name] = &Implementation{Name: name, Invoke: invoke, Checker: checker}
	return nil
}

// UnregisterImpl removes a previously registered interface, if any.
func (e *Endpoint) UnregisterImpl(name string) {
	e.mu.Lock()
	delete(e.impls, name)
	e.mu.Unlock()
}

// invokeMethod is the single synthetic method name RegisterFunc
// registers a bare function under: sugar over a synthetic interface
// with the single method invoke.
const invokeMethod = "invoke"

// RegisterFunc registers a bare function under name, reachable from the
// peer via CallRemote(name, "invoke", args).
func (e *Endpoint) RegisterFunc(name string, fn func(args []any) (any, error)) error {
	return e.RegisterImpl(name, func(method string, args []any) (any, error) {
		if method != invokeMethod {
			return nil, &RPCError{Code: CodeUnknownMethod, Mesg: fmt.Sprintf("unknown method %q", method)}
		}
		return fn(args)
	}, nil)
}

// UnregisterFunc removes a function registered with RegisterFunc.
func (e *Endpoint) UnregisterFunc(name string) { e.UnregisterImpl(name) }

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// RegisterStruct scans rcvr's exported methods of shape
//
//	func(arg1 T1, arg2 T2, ...) (R, error)
//
// (or returning only error) and returns an untyped Invoker, ready to be
// passed to RegisterImpl, whose positional []any arguments are
// reflectively converted to each method's declared parameter types
// before the call. It registers nothing itself.
func RegisterStruct(rcvr any) (Invoker, error) {
	v := reflect.ValueOf(rcvr)
	t := v.Type()

	type methodSpec struct {
		fn  reflect.Value
		in  []reflect.Type
		out bool // true if the method returns (T, error); false if only (error)
	}
	methods := make(map[string]methodSpec)

	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		ft := m.Func.Type()
		numOut := ft.NumOut() - 0 // method expression: the receiver is ft.In(0), skipped below

		switch {
		case numOut == 2 && ft.Out(1) == errorType:
			in := make([]reflect.Type, ft.NumIn()-1)
			for j := 1; j < ft.NumIn(); j++ {
				in[j-1] = ft.In(j)
			}
			methods[m.Name] = methodSpec{fn: v.Method(i), in: in, out: true}
		case numOut == 1 && ft.Out(0) == errorType:
			in := make([]reflect.Type, ft.NumIn()-1)
			for j := 1; j < ft.NumIn(); j++ {
				in[j-1] = ft.In(j)
			}
			methods[m.Name] = methodSpec{fn: v.Method(i), in: in, out: false}
		default:
			continue
		}
	}

	return func(method string, args []any) (any, error) {
		spec, ok := methods[method]
		if !ok {
			return nil, &RPCError{Code: CodeUnknownMethod, Mesg: fmt.Sprintf("unknown method %q", method)}
		}
		if len(args) < len(spec.in) {
			return nil, &RPCError{Code: CodeInvalidArgs, Mesg: fmt.Sprintf("%s expects %d arguments, got %d", method, len(spec.in), len(args))}
		}
		in := make([]reflect.Value, len(spec.in))
		for j, pt := range spec.in {
			rv, err := coerce(args[j], pt)
			if err != nil {
				return nil, &RPCError{Code: CodeInvalidArgs, Mesg: err.Error()}
			}
			in[j] = rv
		}
		out := spec.fn.Call(in)
		if spec.out {
			if errv := out[1]; !errv.IsNil() {
				return nil, errv.Interface().(error)
			}
			return out[0].Interface(), nil
		}
		if errv := out[0]; !errv.IsNil() {
			return nil, errv.Interface().(error)
		}
		return nil, nil
	}, nil
}

// coerce converts a decoded []any argument to the type a reflected
// method parameter declares.
func coerce(arg any, want reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(want), nil
	}
	rv := reflect.ValueOf(arg)
	if rv.Type().AssignableTo(want) {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(want) {
		return rv.Convert(want), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %v as %v", rv.Type(), want)
}
