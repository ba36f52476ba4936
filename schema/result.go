package schema

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
)

// validate is shared across every Interface: validator.Validate is
// safe for concurrent use once constructed.
var validate = validator.New(validator.WithRequiredStructEnabled())

// CheckResult validates a decoded result value for method, before it is
// handed back to resolve a caller's pending call.
//
// Unlike CheckArgs, no literal message format needs to be pinned here,
// so this is wired to github.com/go-playground/validator/v10: the
// result is round-tripped through encoding/json into the method's
// declared result struct (reflect.New(m.Result.Type)) and then checked
// with validator.Struct against that struct's `validate:"..."` tags.
func (i *Interface) CheckResult(method string, data any) error {
	m, ok := i.methods[method]
	if !ok {
		return &ValidationError{Method: method, Msg: fmt.Sprintf("unknown method %q", method)}
	}
	if m.Result == nil || m.Result.Type == nil {
		return nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return &ValidationError{Method: method, Msg: fmt.Sprintf("result is not encodable: %v", err)}
	}

	target := reflect.New(m.Result.Type)
	if err := json.Unmarshal(raw, target.Interface()); err != nil {
		return &ValidationError{Method: method, Msg: fmt.Sprintf("result does not match shape: %v", err)}
	}

	if err := validate.Struct(target.Interface()); err != nil {
		return &ValidationError{Method: method, Msg: err.Error()}
	}
	return nil
}
