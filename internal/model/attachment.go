package model

import (
	"time"
)

// Attachment is a binary blob stored inline in the database. The payload
// lives and dies with the record; there is no separate object-storage tier.
//
// TaskID is nil for profile and library images. UserID is nil only while a
// signup is backfilling ownership of a pre-created profile image.
type Attachment struct {
	ID           string    `db:"id" json:"id"`
	UserID       *string   `db:"user_id" json:"userId,omitempty"`
	TaskID       *string   `db:"task_id" json:"taskId,omitempty"`
	Filename     string    `db:"filename" json:"filename"`
	OriginalName string    `db:"original_name" json:"originalName"`
	MimeType     string    `db:"mime_type" json:"mimeType"`
	Size         int64     `db:"size" json:"size"`
	Data         []byte    `db:"data" json:"-"`
	Title        string    `db:"title" json:"title,omitempty"`
	Description  string    `db:"description" json:"description,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"uploadedAt"`
}
