package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "langhost"

// Metrics holds all langhost metric instruments.
type Metrics struct {
	CommandsResolved metric.Int64Counter
	ResolveFailures  metric.Int64Counter
	ServersStarted   metric.Int64Counter
	ServersFailed    metric.Int64Counter
	ResolveDuration  metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.CommandsResolved, err = meter.Int64Counter("langhost.commands.resolved",
		metric.WithDescription("Number of launch commands resolved"))
	if err != nil {
		return nil, err
	}

	m.ResolveFailures, err = meter.Int64Counter("langhost.commands.failed",
		metric.WithDescription("Number of failed command resolutions"))
	if err != nil {
		return nil, err
	}

	m.ServersStarted, err = meter.Int64Counter("langhost.servers.started",
		metric.WithDescription("Number of language servers started"))
	if err != nil {
		return nil, err
	}

	m.ServersFailed, err = meter.Int64Counter("langhost.servers.failed",
		metric.WithDescription("Number of language servers that failed to start"))
	if err != nil {
		return nil, err
	}

	m.ResolveDuration, err = meter.Float64Histogram("langhost.resolve.duration_seconds",
		metric.WithDescription("Command resolution duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
