// Package metrics holds the prometheus collectors of the API process.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "darasa"

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latencies by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	Submissions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Assignment submissions stored, resubmissions included.",
	})

	ChatMessages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_messages_total",
		Help:      "Chat messages posted.",
	})

	RemindersSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reminders_sent_total",
		Help:      "Event reminders e-mailed.",
	})

	SyncedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "synced_assignment_events_total",
		Help:      "Calendar events created from assignment due dates.",
	})
)

// Middleware counts every request by its route pattern, not its raw path.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			HTTPRequests.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			HTTPDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
