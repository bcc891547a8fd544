package model

import (
	"regexp"
	"strings"
	"time"
)

// UserRole represents the role of a user in the system
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// Registration limits
const (
	MinUserAge    = 12
	MaxUserAge    = 99
	AdultAge      = 18
	MaxNameLength = 100
)

var (
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{10,14}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneNoise   = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// UserLocation is the last position the player shared with the Mini-App
type UserLocation struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	City     string  `json:"city,omitempty"`
	District string  `json:"district,omitempty"`
}

// Coordinates returns the position without the administrative labels
func (l UserLocation) Coordinates() Coordinates {
	return Coordinates{Lat: l.Lat, Lng: l.Lng}
}

// AgreementFlags records which agreements a user has accepted
type AgreementFlags struct {
	PersonalData bool `json:"personal_data"`
	Liability    bool `json:"liability"`
	Contract     bool `json:"contract"`
	Media        bool `json:"media"`
	Safety       bool `json:"safety"`
	Minor        bool `json:"minor"`
	Refusal      bool `json:"refusal"`
}

// Signed reports whether the agreement of the given type was accepted
func (f AgreementFlags) Signed(t AgreementType) bool {
	switch t {
	case AgreementPersonalData:
		return f.PersonalData
	case AgreementLiability:
		return f.Liability
	case AgreementContract:
		return f.Contract
	case AgreementMedia:
		return f.Media
	case AgreementSafety:
		return f.Safety
	case AgreementMinor:
		return f.Minor
	case AgreementRefusal:
		return f.Refusal
	}
	return false
}

// User is a registered player
type User struct {
	ID               string         `json:"id"`
	TelegramID       string         `json:"telegram_id"`
	FirstName        string         `json:"first_name"`
	LastName         string         `json:"last_name,omitempty"`
	Age              int            `json:"age"`
	Phone            string         `json:"phone"`
	Email            string         `json:"email,omitempty"`
	Location         *UserLocation  `json:"location,omitempty"`
	AgreementsSigned AgreementFlags `json:"agreements_signed"`
	RegisteredAt     time.Time      `json:"registered_at"`
	QuestsCompleted  []string       `json:"quests_completed"`
	CurrentQuest     string         `json:"current_quest,omitempty"` // active participation ID
	Role             UserRole       `json:"role"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// IsAdmin returns true if the user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// IsMinor returns true for players younger than AdultAge
func (u *User) IsMinor() bool {
	return u.Age < AdultAge
}

// HasCompleted reports whether questID is already in the completed list
func (u *User) HasCompleted(questID string) bool {
	for _, id := range u.QuestsCompleted {
		if id == questID {
			return true
		}
	}
	return false
}

// NormalizePhone strips the separators players commonly type
func NormalizePhone(phone string) string {
	return phoneNoise.Replace(strings.TrimSpace(phone))
}

// RegisterUserRequest is the registration form submitted from the Mini-App
type RegisterUserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Age       int    `json:"age"`
	Phone     string `json:"phone"`
	Email     string `json:"email,omitempty"`
}

// Validate validates the registration form
func (r *RegisterUserRequest) Validate() []FieldError {
	var errors []FieldError

	if strings.TrimSpace(r.FirstName) == "" {
		errors = append(errors, FieldError{Field: "first_name", Message: "first_name is required"})
	} else if len(r.FirstName) > MaxNameLength {
		errors = append(errors, FieldError{Field: "first_name", Message: "first_name must be 100 characters or less"})
	}
	if len(r.LastName) > MaxNameLength {
		errors = append(errors, FieldError{Field: "last_name", Message: "last_name must be 100 characters or less"})
	}
	errors = append(errors, validateAge(r.Age)...)
	errors = append(errors, validatePhone(r.Phone)...)
	errors = append(errors, validateEmail(r.Email)...)

	return errors
}

// UpdateUserRequest is a partial profile update
type UpdateUserRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Age       *int    `json:"age,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// Validate validates the fields present in the update
func (r *UpdateUserRequest) Validate() []FieldError {
	var errors []FieldError

	if r.FirstName != nil && strings.TrimSpace(*r.FirstName) == "" {
		errors = append(errors, FieldError{Field: "first_name", Message: "first_name cannot be empty"})
	}
	if r.Age != nil {
		errors = append(errors, validateAge(*r.Age)...)
	}
	if r.Phone != nil {
		errors = append(errors, validatePhone(*r.Phone)...)
	}
	if r.Email != nil {
		errors = append(errors, validateEmail(*r.Email)...)
	}

	return errors
}

// Apply copies the present fields onto the user
func (r *UpdateUserRequest) Apply(u *User) {
	if r.FirstName != nil {
		u.FirstName = strings.TrimSpace(*r.FirstName)
	}
	if r.LastName != nil {
		u.LastName = strings.TrimSpace(*r.LastName)
	}
	if r.Age != nil {
		u.Age = *r.Age
	}
	if r.Phone != nil {
		u.Phone = NormalizePhone(*r.Phone)
	}
	if r.Email != nil {
		u.Email = strings.TrimSpace(*r.Email)
	}
}

// AdminUpdateUserRequest lets an admin edit a profile and its role
type AdminUpdateUserRequest struct {
	UpdateUserRequest
	Role *UserRole `json:"role,omitempty"`
}

// Validate validates the admin update
func (r *AdminUpdateUserRequest) Validate() []FieldError {
	errors := r.UpdateUserRequest.Validate()
	if r.Role != nil && *r.Role != UserRoleUser && *r.Role != UserRoleAdmin {
		errors = append(errors, FieldError{Field: "role", Message: "role must be 'user' or 'admin'"})
	}
	return errors
}

// UpdateLocationRequest carries the position shared on the location screen
type UpdateLocationRequest struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	City     string  `json:"city,omitempty"`
	District string  `json:"district,omitempty"`
}

// Validate validates the coordinates
func (r *UpdateLocationRequest) Validate() []FieldError {
	return Coordinates{Lat: r.Lat, Lng: r.Lng}.Validate("")
}

func validateAge(age int) []FieldError {
	if age < MinUserAge || age > MaxUserAge {
		return []FieldError{{Field: "age", Message: "age must be between 12 and 99"}}
	}
	return nil
}

func validatePhone(phone string) []FieldError {
	if strings.TrimSpace(phone) == "" {
		return []FieldError{{Field: "phone", Message: "phone is required"}}
	}
	if !phonePattern.MatchString(NormalizePhone(phone)) {
		return []FieldError{{Field: "phone", Message: "phone must contain 11 to 15 digits"}}
	}
	return nil
}

func validateEmail(email string) []FieldError {
	if email != "" && !emailPattern.MatchString(email) {
		return []FieldError{{Field: "email", Message: "email is not a valid address"}}
	}
	return nil
}
