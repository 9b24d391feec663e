package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Exam session ──────────────────────────────────────────────────
	ErrExamNotAvailable   ErrCode = "EXAM_NOT_AVAILABLE"
	ErrWrongExamPassword  ErrCode = "WRONG_EXAM_PASSWORD"
	ErrExamSessionActive  ErrCode = "EXAM_SESSION_ACTIVE"
	ErrSessionCompleted   ErrCode = "SESSION_COMPLETED"
	ErrNoLiveSession      ErrCode = "NO_LIVE_SESSION"
	ErrPhaseConflict      ErrCode = "PHASE_CONFLICT"
	ErrInvalidOption      ErrCode = "INVALID_OPTION"
	ErrUnknownQuestion    ErrCode = "UNKNOWN_QUESTION"
	ErrNavigationBounds   ErrCode = "NAVIGATION_OUT_OF_BOUNDS"
	ErrAlreadySubmitted   ErrCode = "ALREADY_SUBMITTED"
	ErrSubmissionFailed   ErrCode = "SUBMISSION_FAILED"
	ErrSubmissionNotFound ErrCode = "SUBMISSION_NOT_FOUND"

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
	case ErrSessionActive:
		return "You are already logged in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid identifier format."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Exam session ──────────────────────────────────────────────────
	case ErrExamNotAvailable:
		return "This exam is not currently available."
	case ErrWrongExamPassword:
		return "The exam password is incorrect."
	case ErrExamSessionActive:
		return "An exam session is already running for this exam."
	case ErrSessionCompleted:
		return "This exam has already been submitted."
	case ErrNoLiveSession:
		return "No live exam session found. Start the exam first."
	case ErrPhaseConflict:
		return "This action is not allowed in the current exam phase."
	case ErrInvalidOption:
		return "The selected option is out of range."
	case ErrUnknownQuestion:
		return "The question does not belong to this exam."
	case ErrNavigationBounds:
		return "The requested question position does not exist."
	case ErrAlreadySubmitted:
		return "The exam has already been submitted."
	case ErrSubmissionFailed:
		return "Submitting the exam failed. Your answers are kept, please try again."
	case ErrSubmissionNotFound:
		return "No submission found for this exam."

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
