package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	factsCaptured   metric.Int64Counter
	factsRefunded   metric.Int64Counter
	backfillRecords metric.Int64Counter
	reportRequests  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "promolens"
	}
	meter := provider.Meter(name)

	factsCaptured, err := meter.Int64Counter("promolens_facts_captured_total")
	if err != nil {
		return nil, err
	}
	factsRefunded, err := meter.Int64Counter("promolens_facts_refunded_total")
	if err != nil {
		return nil, err
	}
	backfillRecords, err := meter.Int64Counter("promolens_backfill_records_total")
	if err != nil {
		return nil, err
	}
	reportRequests, err := meter.Int64Counter("promolens_report_requests_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		factsCaptured:   factsCaptured,
		factsRefunded:   factsRefunded,
		backfillRecords: backfillRecords,
		reportRequests:  reportRequests,
	}, nil
}

// RecordFactCaptured increments capture counts per sale flag.
func (m *Metrics) RecordFactCaptured(ctx context.Context, wasOnSale string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("was_on_sale", strings.TrimSpace(wasOnSale)))
	m.factsCaptured.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordFactRefunded increments refund supersession counts.
func (m *Metrics) RecordFactRefunded(ctx context.Context) {
	if m == nil {
		return
	}
	m.factsRefunded.Add(ctx, 1)
}

// RecordBackfillRecord increments backfill counts per outcome.
func (m *Metrics) RecordBackfillRecord(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.backfillRecords.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReportRequest increments report request counts per report type.
func (m *Metrics) RecordReportRequest(ctx context.Context, report, groupBy string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("report", strings.TrimSpace(report)),
		attribute.String("group_by", strings.TrimSpace(groupBy)),
	)
	m.reportRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":    {},
	"status_code": {},
	"report":      {},
	"group_by":    {},
	"outcome":     {},
	"was_on_sale": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
