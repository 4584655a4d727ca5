package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LegacyReport describes the reachability of the legacy document store.
type LegacyReport struct {
	Reachable bool    `json:"reachable"`
	LatencyMS float64 `json:"latency_ms"`
	Keys      int64   `json:"keys"`
	Status    string  `json:"status"` // "ok", "unreachable"
	Error     string  `json:"error,omitempty"`
}

// CheckLegacy pings the legacy store and counts the keys of its database.
// An unreachable store is a report, not an error.
func CheckLegacy(ctx context.Context, client redis.Cmdable) (*LegacyReport, error) {
	if client == nil {
		return nil, fmt.Errorf("legacy client is nil")
	}

	start := time.Now()
	if err := client.Ping(ctx).Err(); err != nil {
		return &LegacyReport{Status: "unreachable", Error: err.Error()}, nil
	}
	latency := time.Since(start)

	report := &LegacyReport{
		Reachable: true,
		LatencyMS: float64(latency.Microseconds()) / 1000,
		Status:    "ok",
	}
	if n, err := client.DBSize(ctx).Result(); err == nil {
		report.Keys = n
	}
	return report, nil
}
