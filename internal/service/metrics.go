package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dropgate_uploads_total",
			Help: "Files stored, by visibility",
		},
		[]string{"visibility"},
	)

	accessDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dropgate_access_decisions_total",
			Help: "Access gate outcomes for retrieval attempts",
		},
		[]string{"decision"},
	)

	// Objects or rows left behind by a half finished upload or delete
	orphansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dropgate_orphaned_objects_total",
			Help: "Objects or rows left without a counterpart, by operation",
		},
		[]string{"op"},
	)

	sweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dropgate_expired_swept_total",
		Help: "Expired files removed by the sweeper",
	})
)

// RecordDecision counts an access gate outcome.
func RecordDecision(d Decision) {
	accessDecisionsTotal.WithLabelValues(d.String()).Inc()
}
