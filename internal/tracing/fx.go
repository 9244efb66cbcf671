package tracing

import (
	"github.com/workfolio/workfolio/internal/config"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

func provideConfig(cfg config.Config) Config {
	return Config{
		Enabled:          cfg.OtelEnabled,
		ServiceName:      cfg.AppName,
		ServiceVersion:   cfg.AppVersion,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
	}
}

func ensureProvider(_ *sdktrace.TracerProvider) {}

var Module = fx.Module("tracing",
	fx.Provide(
		provideConfig,
		NewProvider,
	),
	fx.Invoke(ensureProvider),
)
