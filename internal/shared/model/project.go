package model

import "time"

// Project 任务分组，决定 Run 产物目录的命名空间
type Project struct {
	ID        string    `json:"id" db:"id" bson:"_id"`
	Name      string    `json:"name" db:"name" bson:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at" bson:"created_at"`
}

// Requester 发起 TaskRun 的付费身份
type Requester struct {
	ID string `json:"id" db:"id" bson:"_id"`

	// Name 在对应平台上的身份名称
	Name string `json:"name" db:"name" bson:"name"`

	// Provider 所属众包平台（如 prolific、mock）
	Provider string `json:"provider" db:"provider" bson:"provider"`

	CreatedAt time.Time `json:"created_at" db:"created_at" bson:"created_at"`
}
