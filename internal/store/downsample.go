package store

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/home-panel-core/internal/infrastructure/config"
)

// rollup describes one aggregation step: rows at From older than the
// retention window are averaged into Bucket-sized rows at To.
type rollup struct {
	From   AggregationLevel
	To     AggregationLevel
	Bucket time.Duration
}

// rollups are applied in order, finest first, so a single run can cascade
// a backlog through multiple levels.
var rollups = []rollup{
	{From: LevelRaw, To: LevelMinute, Bucket: time.Minute},
	{From: LevelMinute, To: LevelFiveMin, Bucket: 5 * time.Minute},
	{From: LevelFiveMin, To: LevelThirtyMin, Bucket: 30 * time.Minute},
	{From: LevelThirtyMin, To: LevelHour, Bucket: time.Hour},
}

// retentionFor maps a level to its configured window in hours.
func retentionFor(level AggregationLevel, r config.RetentionConfig) int {
	switch level {
	case LevelRaw:
		return r.Raw
	case LevelMinute:
		return r.Minute
	case LevelFiveMin:
		return r.FiveMin
	case LevelThirtyMin:
		return r.ThirtyMin
	case LevelHour:
		return r.Hour
	default:
		return 0
	}
}

// Downsample rolls aged samples up one aggregation level and prunes what
// has aged out entirely. Gauges are averaged, counters are summed, and
// uptime takes the bucket maximum, so charts keep their shape at coarser
// resolutions instead of just losing their tail.
func (s *Store) Downsample(ctx context.Context, retention config.RetentionConfig) error {
	now := time.Now().UTC()

	for _, r := range rollups {
		cutoff := now.Add(-time.Duration(retentionFor(r.From, retention)) * time.Hour)

		if err := s.rollupServerMetrics(ctx, r, cutoff); err != nil {
			return err
		}
		if err := s.rollupVMMetrics(ctx, r, cutoff); err != nil {
			return err
		}
		if err := s.rollupAutomationMetrics(ctx, r, cutoff); err != nil {
			return err
		}
	}

	// Hourly rows and device states are pruned, not rolled up further.
	hourCutoff := now.Add(-time.Duration(retention.Hour) * time.Hour)
	for _, table := range []string{"server_metrics", "vm_metrics", "automation_metrics"} {
		query := fmt.Sprintf( //nolint:gosec // Table names are from a fixed list
			"DELETE FROM %s WHERE aggregation_level = ? AND timestamp < ?", table)
		if _, err := s.db.ExecContext(ctx, query,
			string(LevelHour), hourCutoff.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("pruning %s: %w", table, err)
		}
	}

	if err := s.pruneDeviceStates(ctx, now.Add(-time.Duration(retention.Minute)*time.Hour)); err != nil {
		return err
	}

	s.logger.Info("downsampling run complete")
	return nil
}

// bucketExpr renders a SQL expression that floors the timestamp column to
// the bucket size, back in RFC3339 form.
func bucketExpr(bucket time.Duration) string {
	secs := int64(bucket.Seconds())
	return fmt.Sprintf(
		"strftime('%%Y-%%m-%%dT%%H:%%M:%%SZ', (strftime('%%s', timestamp) / %d) * %d, 'unixepoch')",
		secs, secs,
	)
}

func (s *Store) rollupServerMetrics(ctx context.Context, r rollup, cutoff time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	insert := fmt.Sprintf(`
		INSERT INTO server_metrics
			(node_name, timestamp, cpu_percent, memory_used_gb, memory_total_gb,
			 disk_used_gb, disk_total_gb, uptime_seconds, aggregation_level)
		SELECT node_name, %s,
		       AVG(cpu_percent), AVG(memory_used_gb), AVG(memory_total_gb),
		       AVG(disk_used_gb), AVG(disk_total_gb), MAX(uptime_seconds), ?
		FROM server_metrics
		WHERE aggregation_level = ? AND timestamp < ?
		GROUP BY node_name, 2`, bucketExpr(r.Bucket))

	cutoffStr := cutoff.Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, insert, string(r.To), string(r.From), cutoffStr); err != nil {
		return fmt.Errorf("rolling up server_metrics %s->%s: %w", r.From, r.To, err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM server_metrics WHERE aggregation_level = ? AND timestamp < ?",
		string(r.From), cutoffStr); err != nil {
		return fmt.Errorf("deleting rolled up server_metrics: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing server_metrics rollup: %w", err)
	}
	return nil
}

func (s *Store) rollupVMMetrics(ctx context.Context, r rollup, cutoff time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	insert := fmt.Sprintf(`
		INSERT INTO vm_metrics
			(vmid, vm_name, node_name, timestamp, status, cpu_percent,
			 memory_used_gb, memory_total_gb, disk_read_mb, disk_write_mb,
			 network_in_mb, network_out_mb, uptime_seconds, aggregation_level)
		SELECT vmid, MAX(vm_name), MAX(node_name), %s, MAX(status),
		       AVG(cpu_percent), AVG(memory_used_gb), AVG(memory_total_gb),
		       AVG(disk_read_mb), AVG(disk_write_mb),
		       AVG(network_in_mb), AVG(network_out_mb),
		       MAX(uptime_seconds), ?
		FROM vm_metrics
		WHERE aggregation_level = ? AND timestamp < ?
		GROUP BY vmid, 4`, bucketExpr(r.Bucket))

	cutoffStr := cutoff.Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, insert, string(r.To), string(r.From), cutoffStr); err != nil {
		return fmt.Errorf("rolling up vm_metrics %s->%s: %w", r.From, r.To, err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM vm_metrics WHERE aggregation_level = ? AND timestamp < ?",
		string(r.From), cutoffStr); err != nil {
		return fmt.Errorf("deleting rolled up vm_metrics: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing vm_metrics rollup: %w", err)
	}
	return nil
}

func (s *Store) rollupAutomationMetrics(ctx context.Context, r rollup, cutoff time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	insert := fmt.Sprintf(`
		INSERT INTO automation_metrics
			(automation_id, timestamp, trigger_count, success_count,
			 failure_count, avg_duration_ms, aggregation_level)
		SELECT automation_id, %s,
		       SUM(trigger_count), SUM(success_count), SUM(failure_count),
		       AVG(avg_duration_ms), ?
		FROM automation_metrics
		WHERE aggregation_level = ? AND timestamp < ?
		GROUP BY automation_id, 2`, bucketExpr(r.Bucket))

	cutoffStr := cutoff.Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, insert, string(r.To), string(r.From), cutoffStr); err != nil {
		return fmt.Errorf("rolling up automation_metrics %s->%s: %w", r.From, r.To, err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM automation_metrics WHERE aggregation_level = ? AND timestamp < ?",
		string(r.From), cutoffStr); err != nil {
		return fmt.Errorf("deleting rolled up automation_metrics: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing automation_metrics rollup: %w", err)
	}
	return nil
}

// pruneDeviceStates drops aged state history but always keeps the most
// recent row per topic, so LatestDeviceState keeps working for devices
// that rarely report.
func (s *Store) pruneDeviceStates(ctx context.Context, cutoff time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM device_states
		WHERE timestamp < ?
		  AND id NOT IN (SELECT MAX(id) FROM device_states GROUP BY topic)`,
		cutoff.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("pruning device states: %w", err)
	}
	return nil
}
