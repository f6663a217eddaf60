package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/tasknest/tasknest/internal/model"
)

var (
	ErrAttachmentNotFound = errors.New("attachment not found")
)

// metaColumns selects everything except the blob payload. List endpoints
// must never drag megabytes of bytes out of the database.
const metaColumns = `id, user_id, task_id, filename, original_name, mime_type, size, title, description, created_at`

type AttachmentRepository interface {
	Create(attachment *model.Attachment) error
	ByID(id string) (*model.Attachment, error)
	ByIDAndOwner(id, userID string) (*model.Attachment, error)
	ByIDTaskAndOwner(id, taskID, userID string) (*model.Attachment, error)
	MetaByTaskAndOwner(taskID, userID string) ([]*model.Attachment, error)
	MetaByTask(taskID string) ([]*model.Attachment, error)
	MetaByOwner(userID string) ([]*model.Attachment, error)
	Update(attachment *model.Attachment) error
	LinkOwner(id, userID string) error
	Delete(id string) error
}

type attachmentRepository struct {
	db *sqlx.DB
}

func NewAttachmentRepository(db *sqlx.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(attachment *model.Attachment) error {
	query := `INSERT INTO attachments (id, user_id, task_id, filename, original_name, mime_type, size, data, title, description, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(query,
		attachment.ID,
		attachment.UserID,
		attachment.TaskID,
		attachment.Filename,
		attachment.OriginalName,
		attachment.MimeType,
		attachment.Size,
		attachment.Data,
		attachment.Title,
		attachment.Description,
		attachment.CreatedAt,
	)

	return err
}

func (r *attachmentRepository) ByID(id string) (*model.Attachment, error) {
	attachment := &model.Attachment{}
	query := `SELECT * FROM attachments WHERE id = $1`

	err := r.db.Get(attachment, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrAttachmentNotFound
	}

	return attachment, err
}

func (r *attachmentRepository) ByIDAndOwner(id, userID string) (*model.Attachment, error) {
	attachment := &model.Attachment{}
	query := `SELECT * FROM attachments WHERE id = $1 AND user_id = $2`

	err := r.db.Get(attachment, query, id, userID)
	if err == sql.ErrNoRows {
		return nil, ErrAttachmentNotFound
	}

	return attachment, err
}

func (r *attachmentRepository) ByIDTaskAndOwner(id, taskID, userID string) (*model.Attachment, error) {
	attachment := &model.Attachment{}
	query := `SELECT * FROM attachments WHERE id = $1 AND task_id = $2 AND user_id = $3`

	err := r.db.Get(attachment, query, id, taskID, userID)
	if err == sql.ErrNoRows {
		return nil, ErrAttachmentNotFound
	}

	return attachment, err
}

func (r *attachmentRepository) MetaByTaskAndOwner(taskID, userID string) ([]*model.Attachment, error) {
	var attachments []*model.Attachment
	query := `SELECT ` + metaColumns + ` FROM attachments WHERE task_id = $1 AND user_id = $2`

	err := r.db.Select(&attachments, query, taskID, userID)
	if err != nil {
		return nil, err
	}

	return attachments, nil
}

func (r *attachmentRepository) MetaByTask(taskID string) ([]*model.Attachment, error) {
	var attachments []*model.Attachment
	query := `SELECT ` + metaColumns + ` FROM attachments WHERE task_id = $1`

	err := r.db.Select(&attachments, query, taskID)
	if err != nil {
		return nil, err
	}

	return attachments, nil
}

func (r *attachmentRepository) MetaByOwner(userID string) ([]*model.Attachment, error) {
	var attachments []*model.Attachment
	query := `SELECT ` + metaColumns + ` FROM attachments WHERE user_id = $1 ORDER BY created_at DESC`

	err := r.db.Select(&attachments, query, userID)
	if err != nil {
		return nil, err
	}

	return attachments, nil
}

func (r *attachmentRepository) Update(attachment *model.Attachment) error {
	query := `UPDATE attachments
	          SET filename = $1, original_name = $2, mime_type = $3, size = $4, data = $5, title = $6, description = $7
	          WHERE id = $8`

	result, err := r.db.Exec(query,
		attachment.Filename,
		attachment.OriginalName,
		attachment.MimeType,
		attachment.Size,
		attachment.Data,
		attachment.Title,
		attachment.Description,
		attachment.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrAttachmentNotFound
	}

	return nil
}

// LinkOwner backfills ownership of a blob created before its owning user
// record existed (signup two-phase create).
func (r *attachmentRepository) LinkOwner(id, userID string) error {
	query := `UPDATE attachments SET user_id = $1 WHERE id = $2`

	result, err := r.db.Exec(query, userID, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrAttachmentNotFound
	}

	return nil
}

func (r *attachmentRepository) Delete(id string) error {
	query := `DELETE FROM attachments WHERE id = $1`
	_, err := r.db.Exec(query, id)
	return err
}
