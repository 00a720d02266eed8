// Package store persists metrics history and device states in SQLite.
//
// Samples are written at aggregation level "raw" and rolled up by the
// daily Downsample run: raw rows past their retention window are averaged
// into minute buckets, minute rows into 5-minute buckets, and so on up to
// hourly rows, which are simply deleted once they age out. Queries read
// across levels, so a chart spanning a week seamlessly mixes fresh raw
// samples with older aggregates.
//
// Timestamps are stored as RFC3339 UTC strings, which sort correctly as
// text and stay readable in the sqlite3 shell.
package store
