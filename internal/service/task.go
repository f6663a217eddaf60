package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest/internal/model"
	"github.com/tasknest/tasknest/internal/repository"
)

var (
	ErrTitleRequired = errors.New("title required")
	ErrInvalidStatus = errors.New("invalid status: must be pending or done")
)

type CreateTaskInput struct {
	Title       string
	Status      string
	Description string

	Attachment            *Upload
	AttachmentTitle       string
	AttachmentDescription string
}

// UpdateTaskInput carries a partial update. Nil pointer fields are left
// untouched on the task; the same holds for the attachment title and
// description when an attachment is being replaced.
type UpdateTaskInput struct {
	Title       *string
	Status      *string
	Description *string

	Attachment            *Upload
	TargetAttachmentID    string
	AttachmentTitle       *string
	AttachmentDescription *string
}

type TaskService struct {
	taskRepo       repository.TaskRepository
	attachmentRepo repository.AttachmentRepository
}

func NewTaskService(taskRepo repository.TaskRepository, attachmentRepo repository.AttachmentRepository) *TaskService {
	return &TaskService{
		taskRepo:       taskRepo,
		attachmentRepo: attachmentRepo,
	}
}

// Tasks returns the user's tasks newest first, each annotated with its
// attachment metadata. Payload bytes are never loaded here.
func (s *TaskService) Tasks(userID string) ([]*model.Task, error) {
	tasks, err := s.taskRepo.Tasks(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	for _, task := range tasks {
		attachments, err := s.attachmentRepo.MetaByTask(task.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load attachments for task %s: %w", task.ID, err)
		}
		task.Attachments = attachments
	}

	return tasks, nil
}

// Create stores a new task and, if present, its attachment. The two are
// atomic: when the attachment insert fails the task is rolled back and the
// whole call errors, so the caller never ends up with a silently
// attachment-less task.
func (s *TaskService) Create(userID string, in CreateTaskInput) (*model.Task, error) {
	if in.Title == "" {
		return nil, ErrTitleRequired
	}

	status := in.Status
	if status == "" {
		status = model.TaskStatusPending
	}
	if !model.ValidTaskStatus(status) {
		return nil, ErrInvalidStatus
	}

	now := time.Now()
	task := &model.Task{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       in.Title,
		Status:      status,
		Description: in.Description,
		CreatedAt:   now,
	}

	err := s.taskRepo.Create(task)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if in.Attachment != nil {
		attachment := newTaskAttachment(userID, task.ID, in.Attachment, in.AttachmentTitle, in.AttachmentDescription, now)

		err = s.attachmentRepo.Create(attachment)
		if err != nil {
			// Rollback: delete the task if the attachment insert fails
			delErr := s.taskRepo.Delete(userID, task.ID)
			if delErr != nil {
				slog.Error("failed to delete task during rollback", "error", delErr, "task_id", task.ID)
			}
			return nil, fmt.Errorf("failed to save attachment: %w", err)
		}
	}

	return task, nil
}

// Update applies a partial update to an owned task. Supplied fields
// overwrite, absent fields are retained. An upload with a target attachment
// id replaces that attachment in place; an upload without one appends a new
// attachment to the task.
func (s *TaskService) Update(userID, taskID string, in UpdateTaskInput) (*model.Task, error) {
	task, err := s.taskRepo.ByID(userID, taskID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		if *in.Title == "" {
			return nil, ErrTitleRequired
		}
		task.Title = *in.Title
	}
	if in.Status != nil {
		if !model.ValidTaskStatus(*in.Status) {
			return nil, ErrInvalidStatus
		}
		task.Status = *in.Status
	}
	if in.Description != nil {
		task.Description = *in.Description
	}

	err = s.taskRepo.Update(task)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	switch {
	case in.Attachment != nil && in.TargetAttachmentID != "":
		err = s.replaceAttachment(userID, taskID, in)
		if err != nil {
			return nil, err
		}
	case in.Attachment != nil:
		attachment := newTaskAttachment(userID, taskID, in.Attachment, strVal(in.AttachmentTitle), strVal(in.AttachmentDescription), time.Now())

		err = s.attachmentRepo.Create(attachment)
		if err != nil {
			return nil, fmt.Errorf("failed to save attachment: %w", err)
		}
	}

	return task, nil
}

// replaceAttachment overwrites an attachment's bytes and metadata in place.
// The target must belong to the same owner and task, otherwise the caller
// sees the same not-found error as for a nonexistent attachment.
func (s *TaskService) replaceAttachment(userID, taskID string, in UpdateTaskInput) error {
	attachment, err := s.attachmentRepo.ByIDTaskAndOwner(in.TargetAttachmentID, taskID, userID)
	if err != nil {
		return err
	}

	now := time.Now()
	attachment.Filename = storedFilename(now, in.Attachment.OriginalName)
	attachment.OriginalName = in.Attachment.OriginalName
	attachment.MimeType = in.Attachment.MimeType
	attachment.Size = in.Attachment.Size
	attachment.Data = in.Attachment.Data
	if in.AttachmentTitle != nil {
		attachment.Title = *in.AttachmentTitle
	}
	if in.AttachmentDescription != nil {
		attachment.Description = *in.AttachmentDescription
	}

	err = s.attachmentRepo.Update(attachment)
	if err != nil {
		return fmt.Errorf("failed to replace attachment: %w", err)
	}

	return nil
}

// Delete removes an owned task together with all attachments referencing
// it. The cascade commits in one transaction, so no reader observes the
// task gone while an orphaned attachment remains.
func (s *TaskService) Delete(userID, taskID string) error {
	return s.taskRepo.DeleteWithAttachments(userID, taskID)
}

// Attachments lists attachment metadata for an owned task. An empty result
// reports ErrAttachmentNotFound rather than an empty list; existing clients
// of the API depend on the 404.
func (s *TaskService) Attachments(userID, taskID string) ([]*model.Attachment, error) {
	attachments, err := s.attachmentRepo.MetaByTaskAndOwner(taskID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}

	if len(attachments) == 0 {
		return nil, repository.ErrAttachmentNotFound
	}

	return attachments, nil
}

// AttachmentData returns the raw bytes of one owned attachment. Ownership
// doubles as the existence check: an attachment owned by someone else is
// indistinguishable from one that does not exist.
func (s *TaskService) AttachmentData(userID, attachmentID string) (*model.Attachment, error) {
	return s.attachmentRepo.ByIDAndOwner(attachmentID, userID)
}

func newTaskAttachment(userID, taskID string, upload *Upload, title, description string, now time.Time) *model.Attachment {
	return &model.Attachment{
		ID:           uuid.New().String(),
		UserID:       &userID,
		TaskID:       &taskID,
		Filename:     storedFilename(now, upload.OriginalName),
		OriginalName: upload.OriginalName,
		MimeType:     upload.MimeType,
		Size:         upload.Size,
		Data:         upload.Data,
		Title:        title,
		Description:  description,
		CreatedAt:    now,
	}
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
