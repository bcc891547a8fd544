package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/forgo/cityquest/internal/model"
	"github.com/forgo/cityquest/internal/service"
)

// MapServiceError converts a service error to a ProblemDetails response.
// This centralizes error handling logic for all handlers, ensuring consistent
// HTTP status codes and error messages across the API.
func MapServiceError(err error) *model.ProblemDetails {
	if err == nil {
		return nil
	}

	var validation *service.ValidationError
	if errors.As(err, &validation) {
		return model.NewValidationError(validation.Fields)
	}
	var missing *service.AgreementsMissingError
	if errors.As(err, &missing) {
		return model.NewAgreementsRequiredError(missing.Missing)
	}

	switch {
	// ===== Authentication Errors → 401 =====
	case errors.Is(err, service.ErrInvalidInitData),
		errors.Is(err, service.ErrInitDataExpired),
		errors.Is(err, service.ErrInvalidCredentials):
		p := model.NewUnauthorizedError(err.Error())
		p.Code = model.ErrCodeLoginFailed
		return p
	case errors.Is(err, service.ErrAdminLoginDisabled):
		return model.NewForbiddenError(err.Error())

	// ===== Authorization Errors → 403 =====
	case errors.Is(err, service.ErrNotParticipant):
		p := model.NewForbiddenError(err.Error())
		p.Code = model.ErrCodeNotParticipant
		return p
	case errors.Is(err, service.ErrNotRegistered),
		errors.Is(err, service.ErrLocationRequired):
		return model.NewForbiddenError(err.Error())
	case errors.Is(err, service.ErrAgreementsRequired):
		return model.NewAgreementsRequiredError(nil)
	case errors.Is(err, service.ErrManualArrivalDisabled):
		return model.NewForbiddenError(err.Error())

	// ===== Not Found Errors → 404 =====
	case errors.Is(err, service.ErrUserNotFound):
		return model.NewNotFoundError("user")
	case errors.Is(err, service.ErrCityNotFound):
		return model.NewNotFoundError("city")
	case errors.Is(err, service.ErrLocationNotFound):
		return model.NewNotFoundError("location")
	case errors.Is(err, service.ErrQuestionNotFound):
		return model.NewNotFoundError("question")
	case errors.Is(err, service.ErrQuestNotFound):
		return model.NewNotFoundError("quest")
	case errors.Is(err, service.ErrAgreementNotFound):
		return model.NewNotFoundError("agreement")
	case errors.Is(err, service.ErrPaymentNotFound):
		return model.NewNotFoundError("payment")
	case errors.Is(err, service.ErrParticipationNotFound):
		return model.NewNotFoundError("participation")
	case errors.Is(err, service.ErrNotificationNotFound):
		return model.NewNotFoundError("notification")

	// ===== Conflict Errors → 409 =====
	case errors.Is(err, service.ErrUserAlreadyExists),
		errors.Is(err, service.ErrCityNameExists),
		errors.Is(err, service.ErrAgreementExists),
		errors.Is(err, service.ErrAlreadyParticipating),
		errors.Is(err, service.ErrPaymentAlreadyIn),
		errors.Is(err, service.ErrDispatchRunning):
		return model.NewConflictError(err.Error())
	case errors.Is(err, service.ErrQuestInactive):
		return model.NewConflictError(err.Error())

	// ===== Game State Errors → 409 =====
	case errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrParticipationEnded):
		return model.NewGameStateError(err.Error(), "")
	case errors.Is(err, service.ErrInvalidStage),
		errors.Is(err, service.ErrAIQuestionUsed):
		return model.NewGameStateError(err.Error(), "")
	case errors.Is(err, service.ErrDisqualified):
		return model.NewGameStateError(err.Error(), string(model.StageDisqualified))

	// ===== Payment Errors → 402 =====
	case errors.Is(err, service.ErrPaymentFailed),
		errors.Is(err, service.ErrPaymentNotUsable):
		return model.NewPaymentRequiredError(err.Error())

	// ===== Validation Errors → 422 =====
	case errors.Is(err, service.ErrTelegramIDRequired):
		return model.NewValidationError([]model.FieldError{{Field: "telegram_id", Message: err.Error()}})
	case errors.Is(err, service.ErrEmptyRoute),
		errors.Is(err, service.ErrCheckpointNoQuiz):
		return model.NewValidationError([]model.FieldError{{Field: "location_ids", Message: err.Error()}})
	case errors.Is(err, service.ErrEmptyAnswer):
		return model.NewValidationError([]model.FieldError{{Field: "answer", Message: err.Error()}})
	case errors.Is(err, service.ErrInvalidSample):
		return model.NewValidationError([]model.FieldError{{Field: "sample", Message: err.Error()}})

	// ===== Provider/External Errors → 502 =====
	case errors.Is(err, service.ErrGeneratorUnavailable),
		errors.Is(err, service.ErrNoSender):
		return model.NewBadGatewayError(err.Error())

	// ===== Default → 500 =====
	default:
		return model.NewInternalError("")
	}
}

// writeServiceError maps err and logs the failures the client cannot act on
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	pd := MapServiceError(err)
	if pd.Status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	WriteError(w, pd)
}
