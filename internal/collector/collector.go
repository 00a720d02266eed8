package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nerrad567/home-panel-core/internal/events"
	"github.com/nerrad567/home-panel-core/internal/infrastructure/config"
	"github.com/nerrad567/home-panel-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/home-panel-core/internal/infrastructure/logging"
	"github.com/nerrad567/home-panel-core/internal/metrics"
	"github.com/nerrad567/home-panel-core/internal/store"
	"github.com/nerrad567/home-panel-core/internal/upstream/proxmox"
)

// downsampleTimeout bounds one downsampling run. A run that takes longer
// than this has something badly wrong with the database.
const downsampleTimeout = 10 * time.Minute

// Collector owns the periodic sampling loops and the downsampling cron.
type Collector struct {
	cfg     config.MetricsConfig
	logger  *logging.Logger
	store   *store.Store
	servers []*proxmox.Client
	pool    *events.Pool
	influx  *influxdb.Client // nil when InfluxDB is disabled

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	cron    *cron.Cron
}

// New creates a Collector. influx may be nil; mirroring is skipped then.
func New(
	cfg config.MetricsConfig,
	logger *logging.Logger,
	st *store.Store,
	servers []*proxmox.Client,
	pool *events.Pool,
	influx *influxdb.Client,
) *Collector {
	return &Collector{
		cfg:     cfg,
		logger:  logger.With("component", "collector"),
		store:   st,
		servers: servers,
		pool:    pool,
		influx:  influx,
	}
}

// Start launches the sampling loops and schedules the downsampling job.
// Idempotent: calling Start on a running collector is a no-op.
func (c *Collector) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)

	c.cron = cron.New()
	if _, err := c.cron.AddFunc(c.cfg.DownsampleSchedule, c.runDownsample); err != nil {
		cancel()
		return fmt.Errorf("invalid downsample schedule %q: %w", c.cfg.DownsampleSchedule, err)
	}

	c.cancel = cancel
	c.running = true

	serverInterval := time.Duration(c.cfg.ServerInterval) * time.Second
	vmInterval := time.Duration(c.cfg.VMInterval) * time.Second

	c.wg.Add(3)
	go c.runInterval(runCtx, serverInterval, c.collectServers)
	go c.runInterval(runCtx, vmInterval, c.collectVMs)
	go c.trackDeviceStates(runCtx)

	c.cron.Start()

	c.logger.Info("collector started",
		"servers", len(c.servers),
		"server_interval", serverInterval,
		"vm_interval", vmInterval,
		"downsample_schedule", c.cfg.DownsampleSchedule,
	)

	return nil
}

// Stop cancels the loops and waits for them to exit. Idempotent.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}

	c.cancel()
	<-c.cron.Stop().Done()
	c.wg.Wait()
	c.running = false

	c.logger.Info("collector stopped")
}

// runInterval calls fn immediately, then on every tick until ctx is done.
func (c *Collector) runInterval(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	defer c.wg.Done()

	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// runDownsample is the cron entry point.
func (c *Collector) runDownsample() {
	ctx, cancel := context.WithTimeout(context.Background(), downsampleTimeout)
	defer cancel()

	start := time.Now()
	if err := c.store.Downsample(ctx, c.cfg.Retention); err != nil {
		metrics.CollectorErrors.WithLabelValues("downsample").Inc()
		c.logger.Error("downsampling failed", "error", err)
		return
	}
	c.logger.Info("downsampling complete", "duration", time.Since(start).Round(time.Millisecond))
}
