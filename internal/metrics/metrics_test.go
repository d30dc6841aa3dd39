package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdtasks-admin/internal/shared/model"
)

func TestRecordRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "")

	m.RecordRegistration(model.TaskTypeGeneric, ResultSuccess, 10*time.Millisecond)
	m.RecordRegistration(model.TaskTypeGeneric, ResultDuplicate, time.Millisecond)
	m.RecordRegistration(model.TaskTypeGeneric, ResultSuccess, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RegistrationsTotal.WithLabelValues("generic", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegistrationsTotal.WithLabelValues("generic", ResultDuplicate)))
}

func TestGauges(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry(), "test")

	m.SetAssignmentCounts(map[model.AssignmentStatus]int{
		model.AssignmentStatusApproved: 3,
		model.AssignmentStatusRejected: 1,
	})
	m.SetTaskSpend("alpha", 5.0)
	m.RecordRunStarted(model.TaskTypeMock)
	m.RecordClone(ResultDeclined)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.AssignmentsByStatus.WithLabelValues("approved")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.TaskSpend.WithLabelValues("alpha")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsStarted.WithLabelValues("mock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClonesTotal.WithLabelValues(ResultDeclined)))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRegistration(model.TaskTypeGeneric, ResultFailed, time.Second)
		m.RecordClone(ResultSuccess)
		m.RecordRunStarted(model.TaskTypeGeneric)
		m.SetAssignmentCounts(map[model.AssignmentStatus]int{})
		m.SetTaskSpend("x", 1)
	})
}

func TestSeparateRegistries(t *testing.T) {
	// 同一进程内多个实例不应冲突
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry(), "")
		NewMetrics(prometheus.NewRegistry(), "")
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "")
	m.SetTaskSpend("alpha", 2.5)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `crowdtasks_task_spend{task="alpha"} 2.5`))
}
