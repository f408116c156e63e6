package txmanager

import "time"

// TxOptions captures per-call overrides controlling transaction behaviour.
type TxOptions struct {
	Timeout    time.Duration
	TraceName  string
	MaxRetries int
}

func mergeTxOptions(base, override TxOptions) TxOptions {
	result := base
	if override.Timeout > 0 {
		result.Timeout = override.Timeout
	}
	if override.TraceName != "" {
		result.TraceName = override.TraceName
	}
	if override.MaxRetries > 0 {
		result.MaxRetries = override.MaxRetries
	}
	return result
}
