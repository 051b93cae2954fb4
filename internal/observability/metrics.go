package observability

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/streamvault-backend/internal/logger"
)

// Metrics covers the settlement surface: API traffic, operation outcomes,
// settled value, and the health of postgres and redis.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	operations    *CounterVec
	settledAmount *CounterVec
	agreements    *Gauge

	pgStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func Current() *Metrics { return instance }

func scrapeInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS"))
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return 10 * time.Second
}

func newMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("sv_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"sv_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		apiInflight:   NewGauge("sv_api_inflight_requests", "In-flight API requests."),
		operations:    NewCounterVec("sv_settlement_operations_total", "Settlement operations by type and outcome.", []string{"operation", "outcome"}),
		settledAmount: NewCounterVec("sv_settled_amount_total", "Fixed-unit value settled, by operation.", []string{"operation"}),
		agreements:    NewGauge("sv_agreements_total", "Number of agreements on record."),
		pgStats:       NewGaugeVec("sv_postgres_pool", "Postgres connection pool stats.", []string{"stat"}),
		redisUp:       NewGauge("sv_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing:     NewGauge("sv_redis_ping_seconds", "Redis ping round-trip in seconds."),
	}
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("Metrics enabled")
		}
	})
	return instance
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ObserveOperation(operation string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.operations.Inc(operation, outcome)
}

func (m *Metrics) AddSettled(operation string, amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.settledAmount.Add(float64(amount), operation)
}

func (m *Metrics) SetAgreementCount(n int64) {
	if m == nil {
		return
	}
	m.agreements.Set(float64(n))
}

// GinMiddleware records request counts, latency, and inflight gauge.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		m.apiInflight.Inc()
		c.Next()
		m.apiInflight.Dec()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

func (m *Metrics) GinHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.Status(http.StatusOK)
		_ = m.WritePrometheus(c.Writer)
	}
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, metric := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.operations, m.settledAmount, m.agreements,
		m.pgStats, m.redisUp, m.redisPing,
	} {
		if err := metric.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

// StartAgreementCollector samples the agreement count on the scrape
// interval. The count function is injected so this package stays free of
// repository imports.
func (m *Metrics) StartAgreementCollector(ctx context.Context, log *logger.Logger, count func(ctx context.Context) (int64, error)) {
	if m == nil || count == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(scrapeInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := count(ctx)
				if err != nil {
					if log != nil {
						log.Warn("metrics: agreement count failed", "error", err)
					}
					continue
				}
				m.SetAgreementCount(n)
			}
		}
	}()
}

// StartPGCollector samples the connection pool on the scrape interval.
func (m *Metrics) StartPGCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(scrapeInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: postgres pool unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.Set(float64(stats.OpenConnections), "open")
				m.pgStats.Set(float64(stats.InUse), "in_use")
				m.pgStats.Set(float64(stats.Idle), "idle")
				m.pgStats.Set(float64(stats.WaitCount), "wait_count")
			}
		}
	}()
}

// StartRedisCollector pings redis on the scrape interval.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if m == nil || rdb == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(scrapeInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
