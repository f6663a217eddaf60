package model

import (
	"time"
)

const (
	TaskStatusPending = "pending"
	TaskStatusDone    = "done"
)

// ValidTaskStatus reports whether s is one of the accepted task states.
func ValidTaskStatus(s string) bool {
	return s == TaskStatusPending || s == TaskStatusDone
}

type Task struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"userId"`
	Title       string    `db:"title" json:"title"`
	Status      string    `db:"status" json:"status"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`

	// Populated by the service for list responses, never stored.
	Attachments []*Attachment `db:"-" json:"attachments,omitempty"`
}
