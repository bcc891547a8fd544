package service

import "errors"

// Centralized service layer errors.
// All errors returned by service methods are defined here for consistency
// and to make error handling in handlers predictable.

// ===== Authentication Errors =====
var (
	ErrInvalidInitData     = errors.New("invalid telegram init data")
	ErrInitDataExpired     = errors.New("telegram init data expired")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrAdminLoginDisabled  = errors.New("admin login is not configured")
	ErrNotRegistered       = errors.New("user is not registered")
	ErrTelegramIDRequired  = errors.New("telegram id is required")
	ErrUserAlreadyExists   = errors.New("user already registered")
	ErrUserNotFound        = errors.New("user not found")
	ErrLocationRequired    = errors.New("location access is required")
	ErrAgreementsRequired  = errors.New("required agreements are not signed")
	ErrTokenGenerateFailed = errors.New("failed to issue token")
)

// ===== Catalog Errors =====
var (
	ErrCityNotFound      = errors.New("city not found")
	ErrCityNameExists    = errors.New("a city with this name already exists")
	ErrLocationNotFound  = errors.New("location not found")
	ErrQuestionNotFound  = errors.New("question not found")
	ErrQuestNotFound     = errors.New("quest not found")
	ErrQuestInactive     = errors.New("quest is not active")
	ErrCheckpointNoQuiz  = errors.New("every checkpoint needs at least one question")
	ErrAgreementNotFound = errors.New("agreement not found")
	ErrAgreementExists   = errors.New("an agreement of this type already exists")
)

// ===== Payment Errors =====
var (
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrPaymentFailed    = errors.New("payment was declined")
	ErrPaymentNotUsable = errors.New("payment is not completed for this quest")
	ErrPaymentAlreadyIn = errors.New("payment is already used by another participation")
)

// ===== Participation Errors =====
var (
	ErrParticipationNotFound = errors.New("participation not found")
	ErrNotParticipant        = errors.New("participation belongs to another user")
	ErrAlreadyParticipating  = errors.New("user already has an active quest")
	ErrInvalidStatus         = errors.New("action not allowed in the current status")
	ErrInvalidStage          = errors.New("action not allowed in the current stage")
	ErrParticipationEnded    = errors.New("participation has already ended")
	ErrDisqualified          = errors.New("participant is disqualified")
	ErrEmptyRoute            = errors.New("quest has no checkpoints")
	ErrManualArrivalDisabled = errors.New("manual arrival is disabled")
	ErrAIQuestionUsed        = errors.New("AI question already used at this checkpoint")
	ErrEmptyAnswer           = errors.New("answer is required")
	ErrInvalidSample         = errors.New("invalid location sample")
)

// ===== Notification Errors =====
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNoSender             = errors.New("no sender for channel")
	ErrDispatchRunning      = errors.New("notification dispatch is already running")
)

// ===== AI Errors =====
var (
	ErrGeneratorUnavailable = errors.New("question generator unavailable")
)
