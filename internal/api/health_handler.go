package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/whisperbox/internal/pkg/httputil"
)

// HealthStatus represents the overall health of the system.
type HealthStatus struct {
	Status  string                    `json:"status"` // "healthy", "degraded", "unhealthy"
	Version string                    `json:"version"`
	Uptime  string                    `json:"uptime"`
	Checks  map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck represents the health of a single component.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down", "degraded", "disabled"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// Probe checks one dependency.
type Probe func(ctx context.Context) ComponentCheck

type namedProbe struct {
	name     string
	critical bool
	probe    Probe
}

// HealthChecker runs the registered probes. A critical probe reporting
// "down" makes the service unhealthy; any other failure only degrades it.
type HealthChecker struct {
	probes    []namedProbe
	startTime time.Time
}

// NewHealthChecker registers the database (critical) and Redis probes.
// redisClient may be nil when Redis is not configured; it is then reported
// as "disabled".
func NewHealthChecker(db *sql.DB, redisClient *redis.Client) *HealthChecker {
	hc := &HealthChecker{startTime: time.Now()}
	hc.AddProbe("database", true, databaseProbe(db))
	hc.AddProbe("redis", false, redisProbe(redisClient))
	return hc
}

// AddProbe registers an extra dependency check.
func (hc *HealthChecker) AddProbe(name string, critical bool, p Probe) {
	hc.probes = append(hc.probes, namedProbe{name: name, critical: critical, probe: p})
}

// StaticProbe reports a fixed status, for components without a remote
// endpoint to ping.
func StaticProbe(status, message string) Probe {
	return func(context.Context) ComponentCheck {
		return ComponentCheck{Status: status, Message: message}
	}
}

const healthVersion = "1.0.0"

// HandleHealth returns the status of all components. It always answers 200;
// the status field carries the verdict.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks, criticalDown := hc.runAllChecks(r.Context())
	httputil.OK(w, HealthStatus{
		Status:  determineOverallStatus(checks, criticalDown),
		Version: healthVersion,
		Uptime:  formatUptime(time.Since(hc.startTime)),
		Checks:  checks,
	})
}

// HandleLiveness always returns 200 while the process is running.
//
//	GET /health/live
func (hc *HealthChecker) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]interface{}{
		"status": "alive",
		"uptime": formatUptime(time.Since(hc.startTime)),
	})
}

// HandleReadiness returns 503 when a critical dependency is down.
//
//	GET /health/ready
func (hc *HealthChecker) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks, criticalDown := hc.runAllChecks(r.Context())
	overall := determineOverallStatus(checks, criticalDown)

	ready := overall != "unhealthy"
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	httputil.JSON(w, status, map[string]interface{}{
		"ready":  ready,
		"status": overall,
		"checks": checks,
	})
}

func (hc *HealthChecker) runAllChecks(ctx context.Context) (map[string]ComponentCheck, bool) {
	results := make([]ComponentCheck, len(hc.probes))
	var wg sync.WaitGroup
	for i, p := range hc.probes {
		wg.Add(1)
		go func(i int, p Probe) {
			defer wg.Done()
			results[i] = p(ctx)
		}(i, p.probe)
	}
	wg.Wait()

	checks := make(map[string]ComponentCheck, len(hc.probes))
	criticalDown := false
	for i, p := range hc.probes {
		checks[p.name] = results[i]
		if p.critical && results[i].Status == "down" {
			criticalDown = true
		}
	}
	return checks, criticalDown
}

// databaseProbe pings PostgreSQL with a 3-second timeout.
func databaseProbe(db *sql.DB) Probe {
	return func(ctx context.Context) ComponentCheck {
		if db == nil {
			return ComponentCheck{Status: "down", Message: "not configured"}
		}
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()

		start := time.Now()
		err := db.PingContext(pingCtx)
		return latencyCheck(time.Since(start), err, time.Second)
	}
}

// redisProbe pings Redis with a 2-second timeout.
func redisProbe(client *redis.Client) Probe {
	return func(ctx context.Context) ComponentCheck {
		if client == nil {
			return ComponentCheck{Status: "disabled", Message: "not configured"}
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		start := time.Now()
		err := client.Ping(pingCtx).Err()
		return latencyCheck(time.Since(start), err, 500*time.Millisecond)
	}
}

func latencyCheck(latency time.Duration, err error, slow time.Duration) ComponentCheck {
	if err != nil {
		return ComponentCheck{
			Status:  "down",
			Latency: latency.String(),
			Message: fmt.Sprintf("ping failed: %v", err),
		}
	}
	if latency > slow {
		return ComponentCheck{
			Status:  "degraded",
			Latency: latency.String(),
			Message: fmt.Sprintf("slow response (%s)", latency),
		}
	}
	return ComponentCheck{Status: "up", Latency: latency.String(), Message: "connected"}
}

// determineOverallStatus derives the aggregate status:
//   - "unhealthy" if a critical probe is down
//   - "degraded"  if any other probe is down or degraded
//   - "healthy"   otherwise
func determineOverallStatus(checks map[string]ComponentCheck, criticalDown bool) string {
	if criticalDown {
		return "unhealthy"
	}
	for _, c := range checks {
		if c.Status == "down" || c.Status == "degraded" {
			return "degraded"
		}
	}
	return "healthy"
}

// formatUptime produces a human-readable uptime string like "3d 4h 12m 5s".
func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
