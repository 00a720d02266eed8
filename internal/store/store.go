package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/home-panel-core/internal/infrastructure/database"
	"github.com/nerrad567/home-panel-core/internal/infrastructure/logging"
	"github.com/nerrad567/home-panel-core/internal/metrics"
)

// AggregationLevel identifies how coarse a stored sample is.
type AggregationLevel string

// Aggregation levels, finest to coarsest.
const (
	LevelRaw       AggregationLevel = "raw"
	LevelMinute    AggregationLevel = "minute"
	LevelFiveMin   AggregationLevel = "5min"
	LevelThirtyMin AggregationLevel = "30min"
	LevelHour      AggregationLevel = "hour"
)

// Store provides access to the metrics tables.
type Store struct {
	db     *database.DB
	logger *logging.Logger
}

// New creates a Store on an open database.
func New(db *database.DB, logger *logging.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// ServerMetric is one node sample.
type ServerMetric struct {
	NodeName      string           `json:"node_name"`
	Timestamp     time.Time        `json:"timestamp"`
	CPUPercent    float64          `json:"cpu_percent"`
	MemoryUsedGB  float64          `json:"memory_used_gb"`
	MemoryTotalGB float64          `json:"memory_total_gb"`
	DiskUsedGB    float64          `json:"disk_used_gb"`
	DiskTotalGB   float64          `json:"disk_total_gb"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Level         AggregationLevel `json:"aggregation_level"`
}

// VMMetric is one guest sample.
type VMMetric struct {
	VMID          int              `json:"vmid"`
	VMName        string           `json:"vm_name"`
	NodeName      string           `json:"node_name"`
	Timestamp     time.Time        `json:"timestamp"`
	Status        string           `json:"status"`
	CPUPercent    float64          `json:"cpu_percent"`
	MemoryUsedGB  float64          `json:"memory_used_gb"`
	MemoryTotalGB float64          `json:"memory_total_gb"`
	DiskReadMB    float64          `json:"disk_read_mb"`
	DiskWriteMB   float64          `json:"disk_write_mb"`
	NetworkInMB   float64          `json:"network_in_mb"`
	NetworkOutMB  float64          `json:"network_out_mb"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Level         AggregationLevel `json:"aggregation_level"`
}

// AutomationMetric is one automation run-rate sample.
type AutomationMetric struct {
	AutomationID  string           `json:"automation_id"`
	Timestamp     time.Time        `json:"timestamp"`
	TriggerCount  int64            `json:"trigger_count"`
	SuccessCount  int64            `json:"success_count"`
	FailureCount  int64            `json:"failure_count"`
	AvgDurationMS float64          `json:"avg_duration_ms"`
	Level         AggregationLevel `json:"aggregation_level"`
}

// DeviceState is one observed device payload.
type DeviceState struct {
	Topic     string          `json:"topic"`
	Timestamp time.Time       `json:"timestamp"`
	State     json.RawMessage `json:"state"`
}

// InsertServerMetric stores a raw node sample.
func (s *Store) InsertServerMetric(ctx context.Context, m ServerMetric) error {
	level := m.Level
	if level == "" {
		level = LevelRaw
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO server_metrics
			(node_name, timestamp, cpu_percent, memory_used_gb, memory_total_gb,
			 disk_used_gb, disk_total_gb, uptime_seconds, aggregation_level)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.NodeName, m.Timestamp.UTC().Format(time.RFC3339),
		m.CPUPercent, m.MemoryUsedGB, m.MemoryTotalGB,
		m.DiskUsedGB, m.DiskTotalGB, m.UptimeSeconds, string(level),
	)
	if err != nil {
		return fmt.Errorf("inserting server metric: %w", err)
	}
	metrics.MetricsSamples.WithLabelValues("server_metrics").Inc()
	return nil
}

// InsertVMMetric stores a raw guest sample.
func (s *Store) InsertVMMetric(ctx context.Context, m VMMetric) error {
	level := m.Level
	if level == "" {
		level = LevelRaw
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vm_metrics
			(vmid, vm_name, node_name, timestamp, status, cpu_percent,
			 memory_used_gb, memory_total_gb, disk_read_mb, disk_write_mb,
			 network_in_mb, network_out_mb, uptime_seconds, aggregation_level)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.VMID, m.VMName, m.NodeName, m.Timestamp.UTC().Format(time.RFC3339),
		m.Status, m.CPUPercent, m.MemoryUsedGB, m.MemoryTotalGB,
		m.DiskReadMB, m.DiskWriteMB, m.NetworkInMB, m.NetworkOutMB,
		m.UptimeSeconds, string(level),
	)
	if err != nil {
		return fmt.Errorf("inserting vm metric: %w", err)
	}
	metrics.MetricsSamples.WithLabelValues("vm_metrics").Inc()
	return nil
}

// InsertAutomationMetric stores a raw automation sample.
func (s *Store) InsertAutomationMetric(ctx context.Context, m AutomationMetric) error {
	level := m.Level
	if level == "" {
		level = LevelRaw
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO automation_metrics
			(automation_id, timestamp, trigger_count, success_count,
			 failure_count, avg_duration_ms, aggregation_level)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.AutomationID, m.Timestamp.UTC().Format(time.RFC3339),
		m.TriggerCount, m.SuccessCount, m.FailureCount, m.AvgDurationMS, string(level),
	)
	if err != nil {
		return fmt.Errorf("inserting automation metric: %w", err)
	}
	metrics.MetricsSamples.WithLabelValues("automation_metrics").Inc()
	return nil
}

// InsertDeviceState stores an observed device payload.
func (s *Store) InsertDeviceState(ctx context.Context, d DeviceState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO device_states (topic, timestamp, state, aggregation_level)
		VALUES (?, ?, ?, 'raw')`,
		d.Topic, d.Timestamp.UTC().Format(time.RFC3339), string(d.State),
	)
	if err != nil {
		return fmt.Errorf("inserting device state: %w", err)
	}
	metrics.MetricsSamples.WithLabelValues("device_states").Inc()
	return nil
}

// ServerMetrics returns samples for a node since the cutoff, oldest
// first, across all aggregation levels.
func (s *Store) ServerMetrics(ctx context.Context, node string, since time.Time) ([]ServerMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT node_name, timestamp, cpu_percent, memory_used_gb, memory_total_gb,
		       disk_used_gb, disk_total_gb, uptime_seconds, aggregation_level
		FROM server_metrics
		WHERE node_name = ? AND timestamp >= ?
		ORDER BY timestamp`,
		node, since.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("querying server metrics: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows

	var out []ServerMetric
	for rows.Next() {
		var m ServerMetric
		var ts, level string
		if err := rows.Scan(&m.NodeName, &ts, &m.CPUPercent, &m.MemoryUsedGB,
			&m.MemoryTotalGB, &m.DiskUsedGB, &m.DiskTotalGB,
			&m.UptimeSeconds, &level); err != nil {
			return nil, fmt.Errorf("scanning server metric: %w", err)
		}
		m.Timestamp, _ = time.Parse(time.RFC3339, ts) //nolint:errcheck // Format is controlled
		m.Level = AggregationLevel(level)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating server metrics: %w", err)
	}
	return out, nil
}

// VMMetrics returns samples for a guest since the cutoff, oldest first.
func (s *Store) VMMetrics(ctx context.Context, vmid int, since time.Time) ([]VMMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT vmid, vm_name, node_name, timestamp, status, cpu_percent,
		       memory_used_gb, memory_total_gb, disk_read_mb, disk_write_mb,
		       network_in_mb, network_out_mb, uptime_seconds, aggregation_level
		FROM vm_metrics
		WHERE vmid = ? AND timestamp >= ?
		ORDER BY timestamp`,
		vmid, since.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("querying vm metrics: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows

	var out []VMMetric
	for rows.Next() {
		var m VMMetric
		var ts, level string
		if err := rows.Scan(&m.VMID, &m.VMName, &m.NodeName, &ts, &m.Status,
			&m.CPUPercent, &m.MemoryUsedGB, &m.MemoryTotalGB,
			&m.DiskReadMB, &m.DiskWriteMB, &m.NetworkInMB, &m.NetworkOutMB,
			&m.UptimeSeconds, &level); err != nil {
			return nil, fmt.Errorf("scanning vm metric: %w", err)
		}
		m.Timestamp, _ = time.Parse(time.RFC3339, ts) //nolint:errcheck // Format is controlled
		m.Level = AggregationLevel(level)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vm metrics: %w", err)
	}
	return out, nil
}

// AutomationMetrics returns run-rate samples for an automation since the
// cutoff, oldest first.
func (s *Store) AutomationMetrics(ctx context.Context, id string, since time.Time) ([]AutomationMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT automation_id, timestamp, trigger_count, success_count,
		       failure_count, avg_duration_ms, aggregation_level
		FROM automation_metrics
		WHERE automation_id = ? AND timestamp >= ?
		ORDER BY timestamp`,
		id, since.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("querying automation metrics: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows

	var out []AutomationMetric
	for rows.Next() {
		var m AutomationMetric
		var ts, level string
		if err := rows.Scan(&m.AutomationID, &ts, &m.TriggerCount,
			&m.SuccessCount, &m.FailureCount, &m.AvgDurationMS, &level); err != nil {
			return nil, fmt.Errorf("scanning automation metric: %w", err)
		}
		m.Timestamp, _ = time.Parse(time.RFC3339, ts) //nolint:errcheck // Format is controlled
		m.Level = AggregationLevel(level)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating automation metrics: %w", err)
	}
	return out, nil
}

// DeviceStates returns state history for a topic since the cutoff,
// oldest first.
func (s *Store) DeviceStates(ctx context.Context, topic string, since time.Time) ([]DeviceState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT topic, timestamp, state
		FROM device_states
		WHERE topic = ? AND timestamp >= ?
		ORDER BY timestamp`,
		topic, since.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("querying device states: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows

	var out []DeviceState
	for rows.Next() {
		var d DeviceState
		var ts, state string
		if err := rows.Scan(&d.Topic, &ts, &state); err != nil {
			return nil, fmt.Errorf("scanning device state: %w", err)
		}
		d.Timestamp, _ = time.Parse(time.RFC3339, ts) //nolint:errcheck // Format is controlled
		d.State = json.RawMessage(state)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device states: %w", err)
	}
	return out, nil
}

// LatestDeviceState returns the most recent state for a topic, or nil if
// the topic has never been seen.
func (s *Store) LatestDeviceState(ctx context.Context, topic string) (*DeviceState, error) {
	var d DeviceState
	var ts, state string
	err := s.db.QueryRowContext(ctx, `
		SELECT topic, timestamp, state
		FROM device_states
		WHERE topic = ?
		ORDER BY id DESC
		LIMIT 1`,
		topic,
	).Scan(&d.Topic, &ts, &state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying latest device state: %w", err)
	}
	d.Timestamp, _ = time.Parse(time.RFC3339, ts) //nolint:errcheck // Format is controlled
	d.State = json.RawMessage(state)
	return &d, nil
}
