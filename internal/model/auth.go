package model

import "time"

// TelegramAuthRequest carries the raw Telegram.WebApp.initData string
type TelegramAuthRequest struct {
	InitData string `json:"init_data"`
}

// Validate validates the login request
func (r *TelegramAuthRequest) Validate() []FieldError {
	if r.InitData == "" {
		return []FieldError{{Field: "init_data", Message: "init_data is required"}}
	}
	return nil
}

// AdminLoginRequest is the admin panel login form
type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate validates the admin login form
func (r *AdminLoginRequest) Validate() []FieldError {
	var errors []FieldError
	if r.Username == "" {
		errors = append(errors, FieldError{Field: "username", Message: "username is required"})
	}
	if r.Password == "" {
		errors = append(errors, FieldError{Field: "password", Message: "password is required"})
	}
	return errors
}

// TelegramUser is the account described by verified init data
type TelegramUser struct {
	ID           string `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// AuthResponse is returned by every login endpoint. Registered is false for a
// Telegram account that has not completed the registration form yet.
type AuthResponse struct {
	Token        string        `json:"token"`
	ExpiresAt    time.Time     `json:"expires_at"`
	Registered   bool          `json:"registered"`
	User         *User         `json:"user,omitempty"`
	TelegramUser *TelegramUser `json:"telegram_user,omitempty"`
}
