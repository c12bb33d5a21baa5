// Package metrics exposes the service's Prometheus collectors. Everything is
// registered on the default registry and served from /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttendanceMarks counts mark attempts by result:
	// created, updated, denied, error.
	AttendanceMarks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_marks_total",
		Help: "Attendance mark attempts by result.",
	}, []string{"result"})

	// Logins counts login attempts by result: ok, failed.
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logins_total",
		Help: "Login attempts by result.",
	}, []string{"result"})
)
