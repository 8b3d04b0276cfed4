package user

import "time"

// User is the persisted account record. Credentials never leave the
// service; callers get a Profile.
type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"passwordHash"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	DateOfBirth     string    `json:"dateOfBirth"`
	IsAdmin         bool      `json:"isAdmin"`
	CreatedAt       time.Time `json:"createdAt"`
	ResetCodeHash   string    `json:"resetCodeHash,omitempty"`
	ResetCodeExpiry int64     `json:"resetCodeExpiry,omitempty"` // unix millis
}

func (u User) Key() string { return u.Email }

type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	DateOfBirth string    `json:"dateOfBirth"`
	IsAdmin     bool      `json:"isAdmin"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Phone:       u.Phone,
		DateOfBirth: u.DateOfBirth,
		IsAdmin:     u.IsAdmin,
		CreatedAt:   u.CreatedAt,
	}
}

type Registration struct {
	Email       string
	Password    string
	Name        string
	Phone       string
	DateOfBirth string
}

type ProfileUpdate struct {
	Email           string
	Phone           *string
	CurrentPassword string
	NewPassword     string
}
