package spend

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdtasks-admin/internal/metrics"
	"crowdtasks-admin/internal/shared/model"
	"crowdtasks-admin/internal/shared/storage/storagetest"
)

func TestRunSpendCountsOnlyPayable(t *testing.T) {
	s := storagetest.NewSQLite(t)
	task := storagetest.Task(t, s, "task-1", "alpha", nil)
	req := storagetest.Requester(t, s, "req-1")
	run := storagetest.Run(t, s, "run-1", task.ID, req.ID)
	storagetest.Assignment(t, s, "a-1", run.ID, model.AssignmentStatusApproved, 2.0)
	storagetest.Assignment(t, s, "a-2", run.ID, model.AssignmentStatusApproved, 3.0)
	storagetest.Assignment(t, s, "a-3", run.ID, model.AssignmentStatusRejected, 4.0)
	storagetest.Assignment(t, s, "a-4", run.ID, model.AssignmentStatusProcessing, 8.0)

	got, err := NewCalculator(s, nil).RunSpend(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got)
}

func TestSpendEmpty(t *testing.T) {
	s := storagetest.NewSQLite(t)
	task := storagetest.Task(t, s, "task-1", "alpha", nil)
	req := storagetest.Requester(t, s, "req-1")
	run := storagetest.Run(t, s, "run-1", task.ID, req.ID)
	c := NewCalculator(s, nil)

	got, err := c.RunSpend(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Zero(t, got)

	total, err := c.TotalSpend(context.Background(), "task-without-runs")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestTotalSpendAndSummary(t *testing.T) {
	s := storagetest.NewSQLite(t)
	task := storagetest.Task(t, s, "task-1", "alpha", nil)
	req := storagetest.Requester(t, s, "req-1")
	run1 := storagetest.Run(t, s, "run-1", task.ID, req.ID)
	run2 := storagetest.Run(t, s, "run-2", task.ID, req.ID)
	storagetest.Assignment(t, s, "a-1", run1.ID, model.AssignmentStatusApproved, 2.0)
	storagetest.Assignment(t, s, "a-2", run1.ID, model.AssignmentStatusReturned, 1.0)
	storagetest.Assignment(t, s, "a-3", run2.ID, model.AssignmentStatusApproved, 1.5)

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg, "")
	c := NewCalculator(s, m)
	ctx := context.Background()

	total, err := c.TotalSpend(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.5, total)

	r1, err := c.RunSpend(ctx, run1.ID)
	require.NoError(t, err)
	r2, err := c.RunSpend(ctx, run2.ID)
	require.NoError(t, err)
	assert.Equal(t, total, r1+r2)

	sum, err := c.Summary(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, sum.Runs, 2)
	assert.Equal(t, RunSpend{RunID: "run-1", Assignments: 2, Payable: 1, Spend: 2.0}, sum.Runs[0])
	assert.Equal(t, 3.5, sum.Total)
	assert.Equal(t, 3.5, testutil.ToFloat64(m.TaskSpend.WithLabelValues(task.ID)))
}

type failingReader struct{}

func (failingReader) ListAssignmentsByRun(context.Context, string) ([]*model.Assignment, error) {
	return nil, errors.New("db down")
}

func (failingReader) ListTaskRunsByTask(context.Context, string) ([]*model.TaskRun, error) {
	return []*model.TaskRun{{ID: "run-1"}}, nil
}

func TestSpendPropagatesStoreErrors(t *testing.T) {
	_, err := NewCalculator(failingReader{}, nil).TotalSpend(context.Background(), "task-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run-1")
}
