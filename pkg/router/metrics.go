package router

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/zen-systems/routegate/pkg/router"

type metrics struct {
	candidates metric.Int64Counter
	decisions  metric.Int64Counter
}

func newMetrics(provider metric.MeterProvider) (*metrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	candidates, err := meter.Int64Counter("routegate.route.candidates",
		metric.WithDescription("Candidates evaluated, by category and admission decision."))
	if err != nil {
		return nil, err
	}
	decisions, err := meter.Int64Counter("routegate.route.decisions",
		metric.WithDescription("Routing calls, by category and primary decision."))
	if err != nil {
		return nil, err
	}
	return &metrics{candidates: candidates, decisions: decisions}, nil
}

func noopMetrics() *metrics {
	m, _ := newMetrics(noop.NewMeterProvider())
	return m
}

func (m *metrics) candidate(ctx context.Context, category, decision string) {
	m.candidates.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("decision", decision),
	))
}

func (m *metrics) decision(ctx context.Context, category, decision string) {
	m.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("decision", decision),
	))
}
