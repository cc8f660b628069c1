package config

// OtelConfig configures OTLP trace export for the response pipeline.
// Disabled by default; when enabled, spans are exported over OTLP/HTTP to
// the configured collector endpoint.
type OtelConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}
