package service

import "github.com/prometheus/client_golang/prometheus"

var (
	compensations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "content_saga_compensations_total", Help: "Compensating actions run after a failed write"},
		[]string{"saga", "step", "outcome"},
	)
	orphanedBlobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "content_orphaned_blobs_total", Help: "Blobs left without a row"},
		[]string{"container", "cause"},
	)
	sweptBlobs = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "content_swept_blobs_total", Help: "Orphaned blobs removed by the sweeper"},
	)
)

func init() { prometheus.MustRegister(compensations, orphanedBlobs, sweptBlobs) }
