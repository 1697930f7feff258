package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Admission ─────────────────────────────────────────────────────
	ErrInvalidLink           ErrCode = "INVALID_LINK"
	ErrInvalidTest           ErrCode = "INVALID_TEST"
	ErrMisconfiguredSchedule ErrCode = "MISCONFIGURED_SCHEDULE"
	ErrNotYetOpen            ErrCode = "NOT_YET_OPEN"
	ErrWindowClosed          ErrCode = "WINDOW_CLOSED"
	ErrInsufficientTime      ErrCode = "INSUFFICIENT_TIME"
	ErrNotRegistered         ErrCode = "NOT_REGISTERED"
	ErrAlreadyCompleted      ErrCode = "ALREADY_COMPLETED"
	ErrNoQuestionsAvailable  ErrCode = "NO_QUESTIONS_AVAILABLE"

	// ─── Session state ─────────────────────────────────────────────────
	ErrSessionNotFound   ErrCode = "SESSION_NOT_FOUND"
	ErrInvalidTransition ErrCode = "INVALID_TRANSITION"
	ErrSessionNotActive  ErrCode = "SESSION_NOT_ACTIVE"
	ErrAlreadySubmitted  ErrCode = "ALREADY_SUBMITTED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrPersistence ErrCode = "PERSISTENCE_ERROR"
	ErrInternal    ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrSessionInvalidated:
		return "You have signed in on another device. Please sign in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You are not allowed to access this resource."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Admission ─────────────────────────────────────────────────────
	case ErrInvalidLink:
		return "This test link does not belong to the college."
	case ErrInvalidTest:
		return "No test matches this college and batch."
	case ErrMisconfiguredSchedule:
		return "This test has an expiry but its schedule is incomplete. Please contact the college."
	case ErrNotYetOpen:
		return "This test is not open yet."
	case ErrWindowClosed:
		return "This test is closed."
	case ErrInsufficientTime:
		return "There is not enough time left to complete this test before it closes."
	case ErrNotRegistered:
		return "You are not registered with this college."
	case ErrAlreadyCompleted:
		return "You have already completed this test."
	case ErrNoQuestionsAvailable:
		return "Not enough questions are available for this test."

	// ─── Session state ─────────────────────────────────────────────────
	case ErrSessionNotFound:
		return "Test session not found."
	case ErrInvalidTransition:
		return "This test session has already been started."
	case ErrSessionNotActive:
		return "This test session is not in progress."
	case ErrAlreadySubmitted:
		return "This test session has already been submitted."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrPersistence:
		return "The request could not be saved. Please try again."
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
