package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "rollcall_submissions_total",
	Help: "Attendance submissions by resulting status.",
}, []string{"status"})
