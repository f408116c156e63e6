package binding

const defaultMeterName = "sqlbind.binding"

// Config controls default behaviour of the binding component.
type Config struct {
	MeterName      string `json:"meterName" yaml:"meterName"`
	MetricsEnabled *bool  `json:"metricsEnabled" yaml:"metricsEnabled"`
	LoggingEnabled *bool  `json:"loggingEnabled" yaml:"loggingEnabled"`
}

func (c Config) sanitized() Config {
	if c.MeterName == "" {
		c.MeterName = defaultMeterName
	}
	return c
}

func (c Config) metricsEnabled() bool {
	if c.MetricsEnabled != nil {
		return *c.MetricsEnabled
	}
	return true
}

func (c Config) loggingEnabled() bool {
	if c.LoggingEnabled != nil {
		return *c.LoggingEnabled
	}
	return true
}
