package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queueItemsProcessedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "resumebox",
			Subsystem: "queue",
			Name:      "items_processed_total",
			Help:      "成功处理的队列条目总数。",
		},
	)

	queueItemsFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "resumebox",
			Subsystem: "queue",
			Name:      "items_failed_total",
			Help:      "处理失败的队列条目总数。",
		},
	)

	queueItemsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "resumebox",
			Subsystem: "queue",
			Name:      "items_in_progress",
			Help:      "当前正在处理的队列条目数量。",
		},
	)

	queueTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "resumebox",
			Subsystem: "queue",
			Name:      "tick_duration_seconds",
			Help:      "worker 单次批处理耗时分布（秒）。",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// QueueItemStarted 标记一个条目进入处理。
func QueueItemStarted() {
	queueItemsInProgress.Inc()
}

// QueueItemFinished 标记一个条目处理结束。
func QueueItemFinished(success bool) {
	queueItemsInProgress.Dec()
	if success {
		queueItemsProcessedTotal.Inc()
	} else {
		queueItemsFailedTotal.Inc()
	}
}

// ObserveQueueTick 记录一次 worker tick 的耗时。
func ObserveQueueTick(d time.Duration) {
	queueTickDuration.Observe(d.Seconds())
}
