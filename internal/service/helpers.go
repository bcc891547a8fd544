package service

import (
	"time"

	"github.com/forgo/cityquest/internal/model"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func nowOrDefault(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// AgreementsMissingError lists the required agreements a player has not signed.
// It matches ErrAgreementsRequired with errors.Is.
type AgreementsMissingError struct {
	Missing []model.AgreementType
}

func (e *AgreementsMissingError) Error() string {
	return ErrAgreementsRequired.Error()
}

func (e *AgreementsMissingError) Unwrap() error {
	return ErrAgreementsRequired
}

// ValidationError carries field errors out of a service call
type ValidationError struct {
	Fields []model.FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return "validation failed: " + e.Fields[0].Field + ": " + e.Fields[0].Message
}

func validationError(fields []model.FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
