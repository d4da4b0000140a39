package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// SystemStatus is the aggregated health payload for the status endpoint.
type SystemStatus struct {
	Database struct {
		Reachable bool `json:"reachable"`
	} `json:"database"`
	SessionBackend struct {
		Kind      string `json:"kind"` // "redis" or "memory"
		Reachable bool   `json:"reachable"`
	} `json:"session_backend"`
	Users         int   `json:"users"`
	Contacts      int64 `json:"contacts"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// CollectSystemStatus gathers a best-effort snapshot; individual probe
// failures show up as unreachable rather than failing the whole call.
func CollectSystemStatus(ctx context.Context, db *pgxpool.Pool, redisClient *redis.Client, users UserRepository, contacts ContactRepository, startedAt time.Time) SystemStatus {
	var st SystemStatus

	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if db != nil && db.Ping(probeCtx) == nil {
		st.Database.Reachable = true
	}

	if redisClient != nil {
		st.SessionBackend.Kind = "redis"
		st.SessionBackend.Reachable = redisClient.Ping(probeCtx).Err() == nil
	} else {
		st.SessionBackend.Kind = "memory"
		st.SessionBackend.Reachable = true
	}

	if users != nil {
		if n, err := users.Count(probeCtx); err == nil {
			st.Users = n
		}
	}
	if contacts != nil {
		if n, err := contacts.Count(probeCtx); err == nil {
			st.Contacts = n
		}
	}

	if !startedAt.IsZero() {
		st.UptimeSeconds = int64(time.Since(startedAt).Seconds())
	}

	return st
}
