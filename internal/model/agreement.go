package model

import (
	"strings"
	"time"
)

// AgreementType identifies one of the legal documents a player signs
type AgreementType string

const (
	AgreementPersonalData AgreementType = "personal_data"
	AgreementLiability    AgreementType = "liability"
	AgreementContract     AgreementType = "contract"
	AgreementMedia        AgreementType = "media"
	AgreementSafety       AgreementType = "safety"
	AgreementMinor        AgreementType = "minor"
	AgreementRefusal      AgreementType = "refusal"
)

// AgreementTypes lists every type in display order
var AgreementTypes = []AgreementType{
	AgreementPersonalData,
	AgreementLiability,
	AgreementContract,
	AgreementMedia,
	AgreementSafety,
	AgreementMinor,
	AgreementRefusal,
}

// IsValid reports whether t is a known agreement type
func (t AgreementType) IsValid() bool {
	for _, known := range AgreementTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Agreement is a versioned legal document
type Agreement struct {
	ID         string        `json:"id"`
	Type       AgreementType `json:"type"`
	Title      string        `json:"title"`
	Content    string        `json:"content"`
	IsRequired bool          `json:"is_required"`
	Version    string        `json:"version"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// RequiredFor reports whether the user must sign the agreement. The minor
// consent is mandatory for players under AdultAge even when optional in the
// catalog.
func (a *Agreement) RequiredFor(u *User) bool {
	if a.IsRequired {
		return true
	}
	return a.Type == AgreementMinor && u != nil && u.IsMinor()
}

// MissingAgreements returns the required agreement types the flags do not cover
func MissingAgreements(catalog []Agreement, u *User, flags AgreementFlags) []AgreementType {
	var missing []AgreementType
	for i := range catalog {
		a := &catalog[i]
		if a.RequiredFor(u) && !flags.Signed(a.Type) {
			missing = append(missing, a.Type)
		}
	}
	return missing
}

// AgreementRequest creates or replaces an agreement
type AgreementRequest struct {
	Type       AgreementType `json:"type"`
	Title      string        `json:"title"`
	Content    string        `json:"content"`
	IsRequired bool          `json:"is_required"`
	Version    string        `json:"version"`
}

// Validate validates the agreement form
func (r *AgreementRequest) Validate() []FieldError {
	var errors []FieldError
	if !r.Type.IsValid() {
		errors = append(errors, FieldError{Field: "type", Message: "type is not a known agreement type"})
	}
	if strings.TrimSpace(r.Title) == "" {
		errors = append(errors, FieldError{Field: "title", Message: "title is required"})
	}
	if strings.TrimSpace(r.Content) == "" {
		errors = append(errors, FieldError{Field: "content", Message: "content is required"})
	}
	if strings.TrimSpace(r.Version) == "" {
		errors = append(errors, FieldError{Field: "version", Message: "version is required"})
	}
	return errors
}
