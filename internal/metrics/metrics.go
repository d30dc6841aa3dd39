// Package metrics Prometheus 指标
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"crowdtasks-admin/internal/shared/model"
)

// DefaultNamespace 指标命名空间
const DefaultNamespace = "crowdtasks"

// 注册结果标签
const (
	ResultSuccess   = "success"
	ResultDuplicate = "duplicate"
	ResultDeclined  = "declined"
	ResultFailed    = "failed"
)

// Metrics 任务生命周期指标
//
// 所有方法对 nil 接收者安全，未启用指标时组件可直接传 nil。
type Metrics struct {
	// 注册指标
	RegistrationsTotal   *prometheus.CounterVec
	RegistrationDuration prometheus.Histogram
	ClonesTotal          *prometheus.CounterVec

	// 执行指标
	RunsStarted *prometheus.CounterVec

	// 统计指标
	AssignmentsByStatus *prometheus.GaugeVec
	TaskSpend           *prometheus.GaugeVec
}

// NewMetrics 在指定 Registerer 上创建指标
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &Metrics{
		RegistrationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "task_registrations_total",
				Help:      "Total task registrations by type and result",
			},
			[]string{"type", "result"},
		),
		RegistrationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "task_registration_duration_seconds",
				Help:      "Task registration duration in seconds",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
		),
		ClonesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "task_dir_clones_total",
				Help:      "Total task content clones by outcome",
			},
			[]string{"outcome"},
		),
		RunsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "task_runs_started_total",
				Help:      "Total task runs started by task type",
			},
			[]string{"type"},
		),
		AssignmentsByStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "assignments",
				Help:      "Assignments per status from the last aggregation",
			},
			[]string{"status"},
		),
		TaskSpend: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "task_spend",
				Help:      "Total spend per task from the last calculation",
			},
			[]string{"task"},
		),
	}
}

// RecordRegistration 记录一次注册
func (m *Metrics) RecordRegistration(t model.TaskType, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.RegistrationsTotal.WithLabelValues(string(t), result).Inc()
	m.RegistrationDuration.Observe(d.Seconds())
}

// RecordClone 记录目录复制结果
func (m *Metrics) RecordClone(outcome string) {
	if m == nil {
		return
	}
	m.ClonesTotal.WithLabelValues(outcome).Inc()
}

// RecordRunStarted 记录 Run 创建
func (m *Metrics) RecordRunStarted(t model.TaskType) {
	if m == nil {
		return
	}
	m.RunsStarted.WithLabelValues(string(t)).Inc()
}

// SetAssignmentCounts 更新各状态数量
func (m *Metrics) SetAssignmentCounts(counts map[model.AssignmentStatus]int) {
	if m == nil {
		return
	}
	for status, n := range counts {
		m.AssignmentsByStatus.WithLabelValues(string(status)).Set(float64(n))
	}
}

// SetTaskSpend 更新任务花费
func (m *Metrics) SetTaskSpend(taskID string, total float64) {
	if m == nil {
		return
	}
	m.TaskSpend.WithLabelValues(taskID).Set(total)
}

// Handler 返回指定 Gatherer 的 HTTP Handler
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
