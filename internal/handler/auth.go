package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tasknest/tasknest/internal/ctxkeys"
	"github.com/tasknest/tasknest/internal/model"
	"github.com/tasknest/tasknest/internal/repository"
	"github.com/tasknest/tasknest/internal/service"
	"github.com/tasknest/tasknest/internal/validation"
)

type AuthHandler struct {
	authService    *service.AuthService
	profileService *service.ProfileService
	maxUploadSize  int64
}

func NewAuthHandler(authService *service.AuthService, profileService *service.ProfileService, maxUploadSize int64) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		profileService: profileService,
		maxUploadSize:  maxUploadSize,
	}
}

// Signup registers a new user from a multipart form with an optional
// profile image. Responds with the new user id only.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	err := parseMultipart(w, r, h.maxUploadSize)
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := r.FormValue("name")
	email := r.FormValue("email")
	password := r.FormValue("password")
	if name == "" || email == "" || password == "" {
		RespondError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	image, err := formUpload(r, "image", h.maxUploadSize, validation.ImageConstraints)
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, err := h.authService.Signup(service.SignupInput{
		Name:         name,
		Email:        email,
		Password:     password,
		ProfileImage: image,
	})
	if err != nil {
		if errors.Is(err, service.ErrDuplicateUser) {
			RespondError(w, http.StatusBadRequest, "User already exists")
			return
		}
		var valErr *validation.Error
		if errors.As(err, &valErr) {
			RespondError(w, http.StatusBadRequest, valErr.Error())
			return
		}
		slog.Error("signup failed", "error", err, "email", email)
		RespondError(w, http.StatusInternalServerError, "Server error during signup")
		return
	}

	RespondJSON(w, http.StatusCreated, map[string]string{
		"message": "User created successfully",
		"userId":  userID,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and returns a bearer token. Unknown email and
// wrong password produce the identical response.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		RespondError(w, http.StatusBadRequest, "Missing fields")
		return
	}

	token, user, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			RespondError(w, http.StatusBadRequest, "Invalid credentials")
			return
		}
		slog.Error("login failed", "error", err)
		RespondError(w, http.StatusInternalServerError, "Server error during login")
		return
	}

	slog.Info("user logged in", "user_id", user.ID)
	RespondJSON(w, http.StatusOK, map[string]string{"token": token})
}

type profileImage struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mimetype"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

type profileResponse struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Email  string         `json:"email"`
	Images []profileImage `json:"images"`
}

// Profile returns the caller's identity plus metadata and fetch URLs for
// every image they own.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	profile, images, err := h.profileService.Profile(user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			RespondError(w, http.StatusNotFound, "User not found")
			return
		}
		slog.Error("failed to load profile", "error", err, "user_id", user.ID)
		RespondError(w, http.StatusInternalServerError, "Server error while fetching profile")
		return
	}

	resp := profileResponse{
		ID:     profile.ID,
		Name:   profile.Name,
		Email:  profile.Email,
		Images: make([]profileImage, 0, len(images)),
	}
	for _, img := range images {
		resp.Images = append(resp.Images, profileImage{
			ID:       img.ID,
			Filename: img.Filename,
			MimeType: img.MimeType,
			Size:     img.Size,
			URL:      "/auth/image/" + img.ID,
		})
	}

	RespondJSON(w, http.StatusOK, resp)
}

// Image serves stored image bytes by id. No auth: profile images are
// referenced by URL from unauthenticated pages.
func (h *AuthHandler) Image(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	image, err := h.profileService.Image(id)
	if err != nil {
		if errors.Is(err, repository.ErrAttachmentNotFound) {
			RespondError(w, http.StatusNotFound, "Image not found")
			return
		}
		slog.Error("failed to fetch image", "error", err, "image_id", id)
		RespondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeBlob(w, image)
}

// UserImage serves a user's profile image bytes by user id.
func (h *AuthHandler) UserImage(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	image, err := h.profileService.UserImage(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, repository.ErrAttachmentNotFound) {
			RespondError(w, http.StatusNotFound, "User image not found")
			return
		}
		slog.Error("failed to fetch user image", "error", err, "user_id", userID)
		RespondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeBlob(w, image)
}

// Upload stores a standalone image in the caller's library.
func (h *AuthHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := parseMultipart(w, r, h.maxUploadSize)
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	image, err := formUpload(r, "image", h.maxUploadSize, validation.ImageConstraints)
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if image == nil {
		RespondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}

	attachment, err := h.profileService.UploadImage(user.ID, image, r.FormValue("title"))
	if err != nil {
		slog.Error("image upload failed", "error", err, "user_id", user.ID)
		RespondError(w, http.StatusInternalServerError, "Server error during upload")
		return
	}

	RespondJSON(w, http.StatusCreated, map[string]string{
		"message":  "New image uploaded",
		"imageId":  attachment.ID,
		"filename": attachment.Filename,
	})
}

// Images lists the caller's library images, metadata only.
func (h *AuthHandler) Images(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	images, err := h.profileService.Images(user.ID)
	if err != nil {
		slog.Error("failed to list images", "error", err, "user_id", user.ID)
		RespondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{"images": images})
}

// writeBlob streams an attachment payload with its content headers.
func writeBlob(w http.ResponseWriter, attachment *model.Attachment) {
	w.Header().Set("Content-Type", attachment.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(attachment.Data)))
	_, _ = w.Write(attachment.Data)
}
