package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskTypeValid(t *testing.T) {
	for _, tt := range ValidTaskTypes() {
		assert.True(t, tt.Valid(), tt)
	}
	assert.False(t, TaskType("bogus").Valid())
	assert.False(t, TaskType("").Valid())
	assert.Equal(t, []string{"legacy_parlai", "generic", "mock"}, ValidTaskTypeNames())
}

func TestTaskRelations(t *testing.T) {
	empty := ""
	p := "proj-1"

	task := &Task{Name: "alpha", Type: TaskTypeGeneric}
	assert.False(t, task.HasProject())
	assert.False(t, task.HasParent())

	task.ProjectID = &empty
	assert.False(t, task.HasProject())

	task.ProjectID = &p
	task.ParentTaskID = &p
	assert.True(t, task.HasProject())
	assert.True(t, task.HasParent())
	assert.Equal(t, "Task-alpha [generic]", task.String())
}

func TestAssignmentStatusSets(t *testing.T) {
	all := ValidAssignmentStatuses()
	assert.Len(t, all, 11)
	for _, s := range all {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, AssignmentStatus("paid").Valid())

	assert.Equal(t, []AssignmentStatus{AssignmentStatusApproved}, PayableAssignmentStatuses())
	assert.True(t, AssignmentStatusApproved.Payable())
	assert.False(t, AssignmentStatusProcessing.Payable())
	assert.False(t, AssignmentStatusAwaitingReview.Payable())

	// 返回副本，修改不影响内部集合
	all[0] = "mutated"
	assert.Equal(t, AssignmentStatusCreated, ValidAssignmentStatuses()[0])
}

func TestAssignmentStatusIsFinal(t *testing.T) {
	final := []AssignmentStatus{
		AssignmentStatusApproved, AssignmentStatusRejected, AssignmentStatusReturned,
		AssignmentStatusTimedOut, AssignmentStatusExpired,
	}
	for _, s := range final {
		assert.True(t, s.IsFinal(), s)
	}
	for _, s := range []AssignmentStatus{AssignmentStatusActive, AssignmentStatusProcessing, AssignmentStatusAwaitingReview} {
		assert.False(t, s.IsFinal(), s)
	}
}

func TestCostOfStatuses(t *testing.T) {
	a := &Assignment{Status: AssignmentStatusApproved, Cost: 2.5}
	assert.Equal(t, 2.5, a.CostOfStatuses(PayableAssignmentStatuses()))

	a.Status = AssignmentStatusRejected
	assert.Zero(t, a.CostOfStatuses(PayableAssignmentStatuses()))
	assert.Zero(t, a.CostOfStatuses(nil))
}
