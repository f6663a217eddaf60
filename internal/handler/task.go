package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest/internal/ctxkeys"
	"github.com/tasknest/tasknest/internal/repository"
	"github.com/tasknest/tasknest/internal/service"
	"github.com/tasknest/tasknest/internal/validation"
)

type TaskHandler struct {
	taskService   *service.TaskService
	maxUploadSize int64
}

func NewTaskHandler(taskService *service.TaskService, maxUploadSize int64) *TaskHandler {
	return &TaskHandler{
		taskService:   taskService,
		maxUploadSize: maxUploadSize,
	}
}

// List returns the caller's tasks newest first, attachments included as
// metadata.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	tasks, err := h.taskService.Tasks(user.ID)
	if err != nil {
		slog.Error("failed to list tasks", "error", err, "user_id", user.ID)
		RespondError(w, http.StatusInternalServerError, "Server error while fetching tasks")
		return
	}

	RespondJSON(w, http.StatusOK, tasks)
}

// Create makes a new task from a multipart form with an optional
// attachment (image or PDF).
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := parseMultipart(w, r, h.maxUploadSize)
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if r.FormValue("title") == "" {
		RespondError(w, http.StatusBadRequest, "Title required")
		return
	}

	attachment, err := formUpload(r, "attachment", h.maxUploadSize, validation.ImageConstraints, validation.DocumentConstraints)
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.taskService.Create(user.ID, service.CreateTaskInput{
		Title:                 r.FormValue("title"),
		Status:                r.FormValue("status"),
		Description:           r.FormValue("description"),
		Attachment:            attachment,
		AttachmentTitle:       r.FormValue("attachmentTitle"),
		AttachmentDescription: r.FormValue("attachmentDescription"),
	})
	if err != nil {
		if errors.Is(err, service.ErrTitleRequired) || errors.Is(err, service.ErrInvalidStatus) {
			RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("failed to create task", "error", err, "user_id", user.ID)
		RespondError(w, http.StatusInternalServerError, "Server error while creating task")
		return
	}

	RespondJSON(w, http.StatusCreated, task)
}

// Update applies a partial update. Form fields that are absent leave the
// task untouched; an attachment with an attachmentId replaces that
// attachment, one without appends.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	taskID := r.PathValue("id")
	if uuid.Validate(taskID) != nil {
		RespondError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	err := parseMultipart(w, r, h.maxUploadSize)
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	attachment, err := formUpload(r, "attachment", h.maxUploadSize, validation.ImageConstraints, validation.DocumentConstraints)
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	in := service.UpdateTaskInput{
		Attachment:         attachment,
		TargetAttachmentID: r.FormValue("attachmentId"),
	}
	if title, ok := formString(r, "title"); ok {
		in.Title = &title
	}
	if status, ok := formString(r, "status"); ok {
		in.Status = &status
	}
	if description, ok := formString(r, "description"); ok {
		in.Description = &description
	}
	if attTitle, ok := formString(r, "attachmentTitle"); ok {
		in.AttachmentTitle = &attTitle
	}
	if attDescription, ok := formString(r, "attachmentDescription"); ok {
		in.AttachmentDescription = &attDescription
	}

	task, err := h.taskService.Update(user.ID, taskID, in)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTaskNotFound):
			RespondError(w, http.StatusNotFound, "Task not found")
		case errors.Is(err, repository.ErrAttachmentNotFound):
			RespondError(w, http.StatusNotFound, "Attachment not found")
		case errors.Is(err, service.ErrTitleRequired) || errors.Is(err, service.ErrInvalidStatus):
			RespondError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("failed to update task", "error", err, "user_id", user.ID, "task_id", taskID)
			RespondError(w, http.StatusInternalServerError, "Server error while updating task")
		}
		return
	}

	RespondJSON(w, http.StatusOK, task)
}

// Delete removes a task and cascades to its attachments.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	taskID := r.PathValue("id")
	if uuid.Validate(taskID) != nil {
		RespondError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	err := h.taskService.Delete(user.ID, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			RespondError(w, http.StatusNotFound, "Task not found")
			return
		}
		slog.Error("failed to delete task", "error", err, "user_id", user.ID, "task_id", taskID)
		RespondError(w, http.StatusInternalServerError, "Server error while deleting task")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{
		"message": "Task and attachments deleted",
		"taskId":  taskID,
	})
}

// Attachments dispatches the two reads that share the /tasks/{x}/{y} path
// shape: GET /tasks/{id}/attachments lists metadata for one task and
// GET /tasks/attachment/{attachmentId} serves one payload. Registered as a
// single pattern because the two shapes overlap with neither more specific,
// which the mux rejects; the literal segment picks the branch.
func (h *TaskHandler) Attachments(w http.ResponseWriter, r *http.Request) {
	first := r.PathValue("first")
	second := r.PathValue("second")

	switch {
	case first == "attachment":
		h.attachmentData(w, r, second)
	case second == "attachments":
		h.listAttachments(w, r, first)
	default:
		RespondError(w, http.StatusNotFound, "Not found")
	}
}

// listAttachments lists attachment metadata for one task. An empty set is a
// 404, not an empty list; clients treat the 404 as "nothing attached".
func (h *TaskHandler) listAttachments(w http.ResponseWriter, r *http.Request, taskID string) {
	user := ctxkeys.User(r.Context())

	attachments, err := h.taskService.Attachments(user.ID, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrAttachmentNotFound) {
			RespondError(w, http.StatusNotFound, "Attachments not found")
			return
		}
		slog.Error("failed to list attachments", "error", err, "user_id", user.ID, "task_id", taskID)
		RespondError(w, http.StatusInternalServerError, "Server error while fetching attachments")
		return
	}

	RespondJSON(w, http.StatusOK, attachments)
}

// attachmentData serves the raw bytes of one owned attachment.
func (h *TaskHandler) attachmentData(w http.ResponseWriter, r *http.Request, attachmentID string) {
	user := ctxkeys.User(r.Context())

	attachment, err := h.taskService.AttachmentData(user.ID, attachmentID)
	if err != nil {
		if errors.Is(err, repository.ErrAttachmentNotFound) {
			RespondError(w, http.StatusNotFound, "Attachment not found")
			return
		}
		slog.Error("failed to fetch attachment", "error", err, "user_id", user.ID, "attachment_id", attachmentID)
		RespondError(w, http.StatusInternalServerError, "Server error while fetching attachment")
		return
	}

	writeBlob(w, attachment)
}
