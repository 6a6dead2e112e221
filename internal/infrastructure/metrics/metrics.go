package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TaskRuns tracks periodic task invocations by outcome
	TaskRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zoneplane_task_runs_total",
		Help: "Total number of periodic task invocations",
	}, []string{"task", "result"})

	// TaskSkipped tracks ticks skipped because the previous invocation was still running
	TaskSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zoneplane_task_skipped_total",
		Help: "Total number of task ticks skipped due to an in-flight invocation",
	}, []string{"task"})

	// TaskDuration tracks task invocation time
	TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zoneplane_task_duration_seconds",
		Help:    "Histogram of periodic task invocation duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	// SerialIncrements counts zone serial bumps applied
	SerialIncrements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zoneplane_serial_increments_total",
		Help: "Total number of zone serial increments applied",
	})

	// NotifiesDispatched counts backend update casts by trigger
	NotifiesDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zoneplane_notifies_dispatched_total",
		Help: "Total number of backend zone updates dispatched",
	}, []string{"trigger"})

	// StatusReports counts backend status reports by convergence outcome
	StatusReports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zoneplane_status_reports_total",
		Help: "Total number of backend status reports processed",
	}, []string{"outcome"})

	// ZonesPurged counts zones physically removed by the purge task
	ZonesPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zoneplane_zones_purged_total",
		Help: "Total number of soft-deleted zones purged",
	})

	// PartitionStart/PartitionEnd expose the instance's assigned shard range
	PartitionStart = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zoneplane_partition_range_start",
		Help: "Start of the shard range assigned to this instance",
	})
	PartitionEnd = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zoneplane_partition_range_end",
		Help: "End of the shard range assigned to this instance",
	})

	// PartitionMembers tracks the observed group membership size
	PartitionMembers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zoneplane_partition_members",
		Help: "Number of live members observed in the coordination group",
	})

	// BusMessages counts cast/call traffic by topic and method
	BusMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zoneplane_bus_messages_total",
		Help: "Total number of bus messages sent",
	}, []string{"topic", "method", "kind"})
)
