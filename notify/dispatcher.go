package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"restaurant-directory-api/metrics"
)

const sendTimeout = 30 * time.Second

// Dispatcher hands notifications to a Notifier in the background. Each
// notification gets exactly one attempt; failures are logged and counted,
// never reported to the caller.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	wg       sync.WaitGroup
}

func NewDispatcher(n Notifier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{notifier: n, logger: logger}
}

// Send schedules a notification and returns immediately.
func (d *Dispatcher) Send(to string, kind Kind, data Data) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		err := d.notifier.Notify(ctx, to, kind, data)
		metrics.RecordNotification(string(kind), err)
		if err != nil {
			d.logger.Error("notification failed", "kind", kind, "to", to, "error", err)
			return
		}
		d.logger.Debug("notification sent", "kind", kind, "to", to)
	}()
}

// Wait blocks until every scheduled notification has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
