// Package influxdb writes monitor metrics to InfluxDB.
package influxdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"textmacro-go/core/event"
	"textmacro-go/core/eventbus"
)

const defaultPingTimeout = 5 * time.Second

var (
	// ErrConnectionFailed is returned when the server cannot be reached.
	ErrConnectionFailed = errors.New("influxdb: connection failed")
	// ErrDisabled is returned by Connect when metrics are turned off.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)

// Config contains InfluxDB connection settings.
type Config struct {
	Enabled       bool
	URL           string
	Token         string
	Org           string
	Bucket        string
	BatchSize     int
	FlushInterval time.Duration
}

// pointWriter is the part of api.WriteAPI the writer uses.
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

// Writer turns bus events into points.
type Writer struct {
	client influxdb2.Client
	api    pointWriter
	logger *slog.Logger

	bus            eventbus.EventBus
	subscriptionID string
	closeOnce      sync.Once
}

// Connect pings the server and returns a batching writer.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if logger == nil {
		logger = slog.Default()
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flush := cfg.FlushInterval
	if flush <= 0 {
		flush = 10 * time.Second
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flush.Milliseconds())))

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	w := &Writer{
		client: client,
		api:    writeAPI,
		logger: logger.With("component", "influxdb"),
	}
	go func() {
		for err := range writeAPI.Errors() {
			w.logger.Warn("InfluxDB write failed", "error", err)
		}
	}()

	w.logger.Info("Connected to InfluxDB", "url", cfg.URL, "bucket", cfg.Bucket)
	return w, nil
}

// Attach subscribes the writer to bus.
func (w *Writer) Attach(bus eventbus.EventBus) {
	w.bus = bus
	w.subscriptionID = bus.Subscribe(w.HandleEvent)
}

// HandleEvent writes the points for e.
func (w *Writer) HandleEvent(e event.Event) {
	for _, p := range pointsFor(e, time.Now()) {
		w.api.WritePoint(p)
	}
}

// Close detaches from the bus, flushes pending points and closes the client.
func (w *Writer) Close() error {
	w.closeOnce.Do(func() {
		if w.bus != nil && w.subscriptionID != "" {
			w.bus.Unsubscribe(w.subscriptionID)
		}
		w.api.Flush()
		if w.client != nil {
			w.client.Close()
		}
	})
	return nil
}

func pointsFor(e event.Event, now time.Time) []*write.Point {
	switch evt := e.(type) {
	case *event.CycleCompleted:
		return []*write.Point{write.NewPoint("monitor_cycle",
			map[string]string{"run_id": evt.RunID},
			map[string]interface{}{
				"cycle":       evt.Cycle,
				"duration_ms": float64(evt.Duration) / float64(time.Millisecond),
				"evaluated":   evt.Evaluated,
				"triggered":   evt.Triggered,
				"failed":      evt.Failed,
				"aborted":     evt.Aborted,
			}, now)}
	case *event.RegionTriggered:
		return []*write.Point{write.NewPoint("region_trigger",
			map[string]string{"region": evt.RegionName(), "set": evt.SetName, "reason": evt.Reason},
			map[string]interface{}{"count": 1}, evt.At)}
	case *event.RegionFailed:
		return []*write.Point{write.NewPoint("region_error",
			map[string]string{"region": evt.RegionName(), "stage": evt.Stage},
			map[string]interface{}{"count": 1}, now)}
	case *event.ActionsCompleted:
		return []*write.Point{write.NewPoint("region_actions",
			map[string]string{"region": evt.RegionName()},
			map[string]interface{}{"executed": evt.Executed, "failed": evt.Failed, "skipped": evt.Skipped}, now)}
	case *event.MonitorStopped:
		return []*write.Point{write.NewPoint("monitor_run",
			map[string]string{"run_id": evt.RunID, "set": evt.SetName, "reason": evt.Reason.String()},
			map[string]interface{}{"cycles": evt.Cycles}, now)}
	default:
		return nil
	}
}
