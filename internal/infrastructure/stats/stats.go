package stats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-credential-api/internal/config"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Counter counts named events. Implementations never fail the caller.
type Counter interface {
	Count(ctx context.Context, name string, value int64)
}

// Noop logs counts instead of exporting them.
type Noop struct {
	Logger *slog.Logger
	Prefix string
}

func (n Noop) Count(ctx context.Context, name string, value int64) {
	if n.Logger == nil {
		return
	}
	n.Logger.DebugContext(ctx, "no-op stats count", "name", qualify(n.Prefix, name), "value", value)
}

// Meter counts events as OpenTelemetry Int64 counters, one instrument per name.
type Meter struct {
	meter  metric.Meter
	prefix string
	logger *slog.Logger

	mu       sync.Mutex
	counters map[string]metric.Int64Counter
}

func NewMeter(mp metric.MeterProvider, prefix string, logger *slog.Logger) *Meter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Meter{
		meter:    mp.Meter("github.com/go-credential-api"),
		prefix:   prefix,
		logger:   logger,
		counters: make(map[string]metric.Int64Counter),
	}
}

func (m *Meter) Count(ctx context.Context, name string, value int64) {
	c, err := m.counter(qualify(m.prefix, name))
	if err != nil {
		m.logger.Warn("could not create counter", "name", name, "err", err)
		return
	}
	c.Add(ctx, value, metric.WithAttributes(attribute.String("event", name)))
}

func (m *Meter) counter(name string) (metric.Int64Counter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counters[name]; ok {
		return c, nil
	}
	c, err := m.meter.Int64Counter(name)
	if err != nil {
		return nil, err
	}
	m.counters[name] = c
	return c, nil
}

// NewMeterProvider returns a meter provider exporting over OTLP gRPC, or nil
// when no collector endpoint is configured.
func NewMeterProvider(ctx context.Context, cfg *config.Config) (*sdkmetric.MeterProvider, error) {
	if cfg.OTLPEndpoint == "" {
		return nil, nil
	}
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.IsDevelopment() {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", "credential-api"),
			attribute.String("deployment.environment", cfg.AppEnv),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	), nil
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
