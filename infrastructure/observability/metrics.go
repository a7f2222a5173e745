package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"goldenticket/config"
	"goldenticket/events"
	"goldenticket/models"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// MetricsProvider manages OpenTelemetry business metrics
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	ticketsIssuedCounter    metric.Int64Counter
	issuanceRejectedCounter metric.Int64Counter
	drawsSettledCounter     metric.Int64Counter
	drawWinnersCounter      metric.Int64Counter
	drawTicketCountHist     metric.Int64Histogram
	drawPotHist             metric.Float64Histogram
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		return nil
	}

	var exporter sdkmetric.Exporter
	var err error
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
	)
	if err := mp.initializeWithReader(reader); err != nil {
		return err
	}
	otel.SetMeterProvider(mp.meterProvider)
	return nil
}

func (mp *MetricsProvider) initializeWithReader(reader sdkmetric.Reader) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Info("Metrics provider already initialized")
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	mp.meter = mp.meterProvider.Meter("goldenticket")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.ticketsIssuedCounter, err = mp.meter.Int64Counter(
		TicketsIssuedTotal,
		metric.WithDescription("Total number of tickets issued"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create tickets issued counter: %w", err)
	}

	mp.issuanceRejectedCounter, err = mp.meter.Int64Counter(
		IssuanceRejectedTotal,
		metric.WithDescription("Total number of ticket purchases rejected, by reason"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create issuance rejected counter: %w", err)
	}

	mp.drawsSettledCounter, err = mp.meter.Int64Counter(
		DrawsSettledTotal,
		metric.WithDescription("Total number of periods settled"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create draws settled counter: %w", err)
	}

	mp.drawWinnersCounter, err = mp.meter.Int64Counter(
		DrawWinnersTotal,
		metric.WithDescription("Total number of winning tickets, by tier"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create draw winners counter: %w", err)
	}

	mp.drawTicketCountHist, err = mp.meter.Int64Histogram(
		DrawTicketCount,
		metric.WithDescription("Tickets sold per settled period"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create draw ticket count histogram: %w", err)
	}

	mp.drawPotHist, err = mp.meter.Float64Histogram(
		DrawPotTotal,
		metric.WithDescription("Pot per settled period in token units"),
	)
	if err != nil {
		return fmt.Errorf("failed to create draw pot histogram: %w", err)
	}

	return nil
}

// Subscribe records metrics for committed domain events
func (mp *MetricsProvider) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventTypeTicketIssued, func(ctx context.Context, e events.Event) {
		if issued, ok := e.(events.TicketIssuedEvent); ok {
			mp.RecordTicketIssued(ctx, issued.Period)
		}
	})
	bus.Subscribe(events.EventTypeDrawSettled, func(ctx context.Context, e events.Event) {
		if settled, ok := e.(events.DrawSettledEvent); ok {
			mp.RecordDrawSettled(ctx, settled)
		}
	})
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordTicketIssued records a committed ticket
func (mp *MetricsProvider) RecordTicketIssued(ctx context.Context, period string) {
	if !mp.isEnabled() {
		return
	}

	mp.ticketsIssuedCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String(LabelPeriod, period)),
	)
}

// RecordIssuanceRejected records a purchase that did not produce a ticket
func (mp *MetricsProvider) RecordIssuanceRejected(ctx context.Context, reason string) {
	if !mp.isEnabled() {
		return
	}

	mp.issuanceRejectedCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String(LabelReason, reason)),
	)
}

// RecordDrawSettled records a settled period
func (mp *MetricsProvider) RecordDrawSettled(ctx context.Context, e events.DrawSettledEvent) {
	if !mp.isEnabled() {
		return
	}

	mp.drawsSettledCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool(LabelEmpty, e.WinningNumbers == nil)),
	)
	mp.drawTicketCountHist.Record(ctx, e.TicketCount)
	mp.drawPotHist.Record(ctx, e.PotTotal.InexactFloat64())

	winners := map[models.Tier]int{
		models.TierFirst:  e.FirstWinners,
		models.TierSecond: e.SecondWinners,
		models.TierThird:  e.ThirdWinners,
	}
	for tier, count := range winners {
		if count == 0 {
			continue
		}
		mp.drawWinnersCounter.Add(ctx, int64(count),
			metric.WithAttributes(attribute.String(LabelTier, string(tier))),
		)
	}
}

// isEnabled checks if metrics are enabled and initialized
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized
}
