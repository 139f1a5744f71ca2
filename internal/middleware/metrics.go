package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RedisErrors counts failed Redis commands by command name.
var RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "shutterhub_redis_errors_total",
	Help: "Total number of failed Redis commands",
}, []string{"command"})

var httpMetrics *fiberprometheus.FiberPrometheus

// InitMetrics builds the HTTP metrics collector once per process. Repeated calls return
// the same collector so tests can build several servers without duplicate registration.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	if httpMetrics == nil {
		httpMetrics = fiberprometheus.New(serviceName)
	}
	return httpMetrics
}

// MetricsMiddleware records request count, latency and in-flight requests.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
