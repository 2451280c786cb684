package notify

import (
	"context"
	"log/slog"

	"github.com/mr1hm/go-disaster-reports/internal/metrics"
	"github.com/mr1hm/go-disaster-reports/internal/models"
	"github.com/mr1hm/go-disaster-reports/internal/worker"
)

// DeliverFunc sends one alert. There is no outbound transport: the default
// implementation records the send as a log line.
type DeliverFunc func(ctx context.Context, a *models.Alert) error

// LogDeliver is the default DeliverFunc.
func LogDeliver(ctx context.Context, a *models.Alert) error {
	slog.InfoContext(ctx, "alert sent",
		"alert_id", a.ID,
		"disaster_id", a.DisasterID,
		"alert_type", a.AlertType,
		"message", a.Message,
		"time_sent", a.TimeSent,
	)
	return nil
}

// Dispatcher hands newly created alerts to a background worker pool so the
// request that created them never waits on delivery.
type Dispatcher struct {
	pool    *worker.WorkerPool[*models.Alert]
	metrics *metrics.Metrics
}

func NewDispatcher(workers, bufferSize int, deliver DeliverFunc, m *metrics.Metrics) *Dispatcher {
	if deliver == nil {
		deliver = LogDeliver
	}
	d := &Dispatcher{metrics: m}
	d.pool = worker.NewWorkerPool("notify", workers, bufferSize, func(ctx context.Context, a *models.Alert) error {
		if err := deliver(ctx, a); err != nil {
			return err
		}
		if d.metrics != nil {
			d.metrics.AlertsDelivered.Inc()
		}
		return nil
	})
	return d
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.pool.Start(ctx)
}

// Notify queues the alert for delivery. A full queue drops the alert with a
// warning rather than blocking the caller.
func (d *Dispatcher) Notify(ctx context.Context, a *models.Alert) {
	if d.pool.TrySubmit(a) {
		return
	}
	slog.WarnContext(ctx, "alert notification dropped", "alert_id", a.ID, "disaster_id", a.DisasterID)
	if d.metrics != nil {
		d.metrics.AlertsDropped.Inc()
	}
}

// Stop waits for queued alerts to be delivered.
func (d *Dispatcher) Stop() {
	d.pool.Stop()
	slog.Info("notification dispatcher stopped")
}
