package middleware

import (
	"time"

	"rpcmux/endpoint"
)

// LoggingWrapper logs how long each outgoing call took and whether it
// failed, routed through endpoint.Logger so it respects whatever
// logger the endpoint was constructed with.
func LoggingWrapper(logger endpoint.Logger) endpoint.CallWrapper {
	return func(next func() (any, error)) (any, error) {
		start := time.Now()
		data, err := next()
		duration := time.Since(start)
		if err != nil {
			logger.Warn("rpc call failed", "duration", duration, "err", err)
			return data, err
		}
		logger.Info("rpc call completed", "duration", duration)
		return data, nil
	}
}
