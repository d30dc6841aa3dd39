package model

import "time"

// TaskRun 任务的一次执行
//
// TaskRun 创建时必须引用已存在的 Task 与 Requester，创建后不再修改，
// 仅通过其下的 Assignment 累积状态。
type TaskRun struct {
	ID          string `json:"id" db:"id" bson:"_id"`
	TaskID      string `json:"task_id" db:"task_id" bson:"task_id"`
	RequesterID string `json:"requester_id" db:"requester_id" bson:"requester_id"`

	// ParamString 序列化后的启动参数，原样保存
	ParamString string `json:"param_string" db:"init_params" bson:"init_params"`

	CreatedAt time.Time `json:"created_at" db:"created_at" bson:"created_at"`
}
