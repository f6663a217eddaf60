package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tasknest/tasknest/internal/model"
	"github.com/tasknest/tasknest/internal/repository"
	"github.com/tasknest/tasknest/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is deliberately identical for an unknown email
	// and a wrong password, so login cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateUser      = errors.New("user already exists")

	ErrMissingToken = errors.New("no token provided")
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")
	// ErrUserRevoked means the token verified but its user no longer
	// exists; deleting an account revokes every outstanding token.
	ErrUserRevoked = errors.New("user no longer exists")
)

type SignupInput struct {
	Name     string
	Email    string
	Password string

	ProfileImage *Upload
}

type AuthService struct {
	userRepo       repository.UserRepository
	attachmentRepo repository.AttachmentRepository
	jwtSecret      string
	jwtExpiry      time.Duration
}

func NewAuthService(
	userRepo repository.UserRepository,
	attachmentRepo repository.AttachmentRepository,
	jwtSecret string,
	jwtExpiry time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:       userRepo,
		attachmentRepo: attachmentRepo,
		jwtSecret:      jwtSecret,
		jwtExpiry:      jwtExpiry,
	}
}

// Signup creates a user, hashing the credential and optionally storing a
// profile image. The image is a two-phase create: the blob is inserted
// before the user row exists (user_id NULL), then ownership is backfilled
// once the user id is known. If any later step fails, compensating deletes
// remove whatever was already inserted, so signup succeeds or fails whole.
// Only the new user's id is returned, never the hash.
func (s *AuthService) Signup(in SignupInput) (string, error) {
	err := validation.ValidateName(in.Name)
	if err != nil {
		return "", err
	}
	err = validation.ValidateEmail(in.Email)
	if err != nil {
		return "", err
	}
	err = validation.ValidatePassword(in.Password)
	if err != nil {
		return "", err
	}

	email := strings.TrimSpace(strings.ToLower(in.Email))

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()

	// Phase one: store the blob without an owner.
	var imageID *string
	if in.ProfileImage != nil {
		attachment := &model.Attachment{
			ID:           uuid.New().String(),
			Filename:     storedFilename(now, in.ProfileImage.OriginalName),
			OriginalName: in.ProfileImage.OriginalName,
			MimeType:     in.ProfileImage.MimeType,
			Size:         in.ProfileImage.Size,
			Data:         in.ProfileImage.Data,
			CreatedAt:    now,
		}

		err = s.attachmentRepo.Create(attachment)
		if err != nil {
			return "", fmt.Errorf("failed to save profile image: %w", err)
		}
		imageID = &attachment.ID
	}

	user := &model.User{
		ID:             uuid.New().String(),
		Name:           strings.TrimSpace(in.Name),
		Email:          email,
		PasswordHash:   string(hashedBytes),
		ProfileImageID: imageID,
		CreatedAt:      now,
	}

	err = s.userRepo.Create(user)
	if err != nil {
		s.cleanupOrphanImage(imageID)
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return "", ErrDuplicateUser
		}
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	// Phase two: backfill blob ownership.
	if imageID != nil {
		err = s.attachmentRepo.LinkOwner(*imageID, user.ID)
		if err != nil {
			delErr := s.userRepo.Delete(user.ID)
			if delErr != nil {
				slog.Error("failed to delete user during signup rollback", "error", delErr, "user_id", user.ID)
			}
			s.cleanupOrphanImage(imageID)
			return "", fmt.Errorf("failed to link profile image: %w", err)
		}
	}

	slog.Info("user signed up", "user_id", user.ID, "email", user.Email)
	return user.ID, nil
}

func (s *AuthService) cleanupOrphanImage(imageID *string) {
	if imageID == nil {
		return
	}
	err := s.attachmentRepo.Delete(*imageID)
	if err != nil {
		slog.Error("failed to delete orphan profile image during signup rollback", "error", err, "attachment_id", *imageID)
	}
}

// Login verifies the credential and issues a signed, time-limited bearer
// token carrying the user id and email.
func (s *AuthService) Login(email, password string) (string, *model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userRepo.ByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to get user: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.GenerateJWT(user)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return token, user, nil
}

func (s *AuthService) GenerateJWT(user *model.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(s.jwtExpiry).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (s *AuthService) VerifyJWT(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// Authenticate resolves a bearer token to its user. The token is verified
// structurally first, then the user's continued existence is re-confirmed
// against the store. Read-only; safe to call concurrently per request.
func (s *AuthService) Authenticate(tokenString string) (*model.User, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims, err := s.VerifyJWT(tokenString)
	if err != nil {
		return nil, err
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.ByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserRevoked
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// Downstream authorization only needs the identity, not the hash.
	user.PasswordHash = ""

	return user, nil
}
