package model

import (
	"time"
)

type User struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	ProfileImageID *string   `db:"profile_image_id" json:"profileImageId,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

func (u *User) HasProfileImage() bool {
	return u.ProfileImageID != nil && *u.ProfileImageID != ""
}
