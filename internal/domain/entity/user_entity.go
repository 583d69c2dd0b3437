package entity

import (
	"time"
)

// User is the aggregate root for the account domain.
// Passwords are stored as bcrypt hashes in Password field.
// Username is the login name chosen at registration.
type User struct {
	ID          string
	Email       string
	Username    string
	Password    string
	RealName    string
	RealSurname string
	School      string
	University  string
	WorkPlace   string
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
