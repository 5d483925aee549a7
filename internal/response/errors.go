package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrEmailTaken         ErrCode = "EMAIL_TAKEN"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam session ──────────────────────────────────────────────────
	ErrExamNotAvailable   ErrCode = "EXAM_NOT_AVAILABLE"
	ErrNoQuestions        ErrCode = "NO_QUESTIONS"
	ErrNoActiveSession    ErrCode = "NO_ACTIVE_SESSION"
	ErrSessionFinished    ErrCode = "SESSION_FINISHED"
	ErrInvalidPosition    ErrCode = "INVALID_POSITION"
	ErrInvalidOption      ErrCode = "INVALID_OPTION"
	ErrSubmitInFlight     ErrCode = "SUBMIT_IN_FLIGHT"
	ErrAlreadySubmitted   ErrCode = "ALREADY_SUBMITTED"
	ErrAnswerKeyUnfetched ErrCode = "ANSWER_KEY_UNAVAILABLE"
	ErrResultNotPersisted ErrCode = "RESULT_NOT_PERSISTED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrEmailTaken:
		return "An account with this email already exists."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Exam session ──────────────────────────────────────────────────
	case ErrExamNotAvailable:
		return "This exam is not currently available."
	case ErrNoQuestions:
		return "This exam has no questions."
	case ErrNoActiveSession:
		return "You have no active session for this exam."
	case ErrSessionFinished:
		return "This session has already finished."
	case ErrInvalidPosition:
		return "Question position is out of range."
	case ErrInvalidOption:
		return "Selected option is out of range."
	case ErrSubmitInFlight:
		return "A submission is already being processed."
	case ErrAlreadySubmitted:
		return "This session has already been submitted."
	case ErrAnswerKeyUnfetched:
		return "The answer key could not be retrieved. Please try submitting again."
	case ErrResultNotPersisted:
		return "Your result could not be saved. Please try submitting again."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
