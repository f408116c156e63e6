package txmanager

import "time"

const defaultMeterName = "sqlbind.txmanager"

// Config controls default behaviour of the transaction manager component.
type Config struct {
	DefaultTimeout       time.Duration `json:"defaultTimeout" yaml:"defaultTimeout"`
	MaxRetries           int           `json:"maxRetries" yaml:"maxRetries"`
	RetryInitialInterval time.Duration `json:"retryInitialInterval" yaml:"retryInitialInterval"`
	RetryMaxInterval     time.Duration `json:"retryMaxInterval" yaml:"retryMaxInterval"`
	MeterName            string        `json:"meterName" yaml:"meterName"`
	MetricsEnabled       *bool         `json:"metricsEnabled" yaml:"metricsEnabled"`
}

func (c Config) sanitized() Config {
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 3 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryInitialInterval <= 0 {
		c.RetryInitialInterval = 50 * time.Millisecond
	}
	if c.RetryMaxInterval <= 0 {
		c.RetryMaxInterval = time.Second
	}
	if c.MeterName == "" {
		c.MeterName = defaultMeterName
	}
	return c
}
