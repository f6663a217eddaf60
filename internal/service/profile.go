package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest/internal/model"
	"github.com/tasknest/tasknest/internal/repository"
)

type ProfileService struct {
	userRepo       repository.UserRepository
	attachmentRepo repository.AttachmentRepository
}

func NewProfileService(userRepo repository.UserRepository, attachmentRepo repository.AttachmentRepository) *ProfileService {
	return &ProfileService{
		userRepo:       userRepo,
		attachmentRepo: attachmentRepo,
	}
}

// Profile returns the user together with metadata for every image they own,
// profile image and library uploads alike. Payload bytes stay in the store.
func (s *ProfileService) Profile(userID string) (*model.User, []*model.Attachment, error) {
	user, err := s.userRepo.ByID(userID)
	if err != nil {
		return nil, nil, err
	}

	user.PasswordHash = ""

	images, err := s.attachmentRepo.MetaByOwner(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list images: %w", err)
	}

	return user, images, nil
}

// Image returns one stored image with its payload, looked up by id alone.
// Served without authentication, matching the public image endpoint.
func (s *ProfileService) Image(id string) (*model.Attachment, error) {
	return s.attachmentRepo.ByID(id)
}

// UserImage returns the profile image of the given user with its payload.
func (s *ProfileService) UserImage(userID string) (*model.Attachment, error) {
	user, err := s.userRepo.ByID(userID)
	if err != nil {
		return nil, err
	}

	if !user.HasProfileImage() {
		return nil, repository.ErrAttachmentNotFound
	}

	return s.attachmentRepo.ByID(*user.ProfileImageID)
}

// UploadImage stores a standalone image in the caller's library. Library
// images carry no task reference.
func (s *ProfileService) UploadImage(userID string, upload *Upload, title string) (*model.Attachment, error) {
	if upload == nil {
		return nil, errors.New("no file uploaded")
	}

	now := time.Now()
	attachment := &model.Attachment{
		ID:           uuid.New().String(),
		UserID:       &userID,
		Filename:     storedFilename(now, upload.OriginalName),
		OriginalName: upload.OriginalName,
		MimeType:     upload.MimeType,
		Size:         upload.Size,
		Data:         upload.Data,
		Title:        title,
		CreatedAt:    now,
	}

	err := s.attachmentRepo.Create(attachment)
	if err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}

	return attachment, nil
}

// Images lists metadata for the caller's images, newest first.
func (s *ProfileService) Images(userID string) ([]*model.Attachment, error) {
	return s.attachmentRepo.MetaByOwner(userID)
}
