package telemetry

import (
	"context"
	"errors"

	paymentapp "github.com/thirdhand/marketplace/internal/application/payment"
	"github.com/thirdhand/marketplace/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

// Telemetry bundles the providers started for the server process
type Telemetry struct {
	Tracer   *TracerProvider
	Meter    *MeterProvider
	Logs     *LoggerProvider
	Profiler *Profiler
	Metrics  paymentapp.Metrics

	cfg    config.TelemetryConfig
	logger *zap.Logger
}

// Setup starts every signal enabled in cfg. Disabled signals get no-op
// providers so callers never branch on configuration.
func Setup(ctx context.Context, cfg config.TelemetryConfig, environment string, logger *zap.Logger) (*Telemetry, error) {
	base := Config{
		Enabled:           cfg.Enabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		SamplingRatio:     cfg.SamplingRatio,
		ServiceName:       cfg.ServiceName,
		Environment:       environment,
		Insecure:          cfg.Insecure,
	}
	t := &Telemetry{cfg: cfg, logger: logger, Metrics: paymentapp.NopMetrics{}}

	var err error
	if t.Tracer, err = NewTracerProvider(ctx, base, logger); err != nil {
		return nil, err
	}

	metricsCfg := MetricsConfig{Config: base, ExportInterval: cfg.MetricsInterval}
	metricsCfg.Enabled = cfg.Enabled && cfg.MetricsEnabled
	if t.Meter, err = NewMeterProvider(ctx, metricsCfg, logger); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	if t.Meter.IsEnabled() {
		metrics, err := NewMarketplaceMetricsFromProvider(t.Meter)
		if err != nil {
			return nil, errors.Join(err, t.Shutdown(ctx))
		}
		t.Metrics = metrics
	}

	logsCfg := base
	logsCfg.Enabled = cfg.Enabled && cfg.LogsEnabled
	if t.Logs, err = NewLoggerProvider(ctx, logsCfg, logger); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}

	if t.Profiler, err = NewProfiler(ProfilerConfig{
		Enabled:         cfg.ProfilingEnabled,
		ServerAddress:   cfg.PyroscopeAddress,
		ApplicationName: cfg.ServiceName,
		Environment:     environment,
	}, logger); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	if cfg.SpanProfiles && t.Profiler.IsEnabled() {
		if err := t.Tracer.EnableSpanProfiles(); err != nil {
			return nil, errors.Join(err, t.Shutdown(ctx))
		}
	}

	return t, nil
}

// Logger tees base into the OpenTelemetry log pipeline when it is enabled
func (t *Telemetry) Logger(base *zap.Logger) *zap.Logger {
	if t.Logs == nil {
		return base
	}
	return t.Logs.Bridge(base, zapcore.InfoLevel)
}

// InstrumentDB registers database tracing when enabled
func (t *Telemetry) InstrumentDB(db *gorm.DB) error {
	return RegisterDBTracing(db, DBTracingConfig{
		Enabled:         t.cfg.Enabled && t.cfg.DBTraceEnabled,
		LogFullSQL:      t.cfg.DBLogFullSQL,
		SlowQueryThresh: t.cfg.DBSlowQueryThresh,
	}, t.logger)
}

// TracingEnabled reports whether HTTP requests should be traced
func (t *Telemetry) TracingEnabled() bool {
	return t.Tracer != nil && t.Tracer.IsEnabled()
}

// Shutdown stops the providers in reverse start order
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.Profiler != nil {
		errs = append(errs, t.Profiler.Stop())
	}
	if t.Logs != nil {
		errs = append(errs, t.Logs.Shutdown(ctx))
	}
	if t.Meter != nil {
		errs = append(errs, t.Meter.Shutdown(ctx))
	}
	if t.Tracer != nil {
		errs = append(errs, t.Tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
