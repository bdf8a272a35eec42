package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Identity ──────────────────────────────────────────────────────
	ErrIdentityRequired ErrCode = "IDENTITY_REQUIRED"

	// ─── Exam sessions ─────────────────────────────────────────────────
	ErrExamNotPublished ErrCode = "EXAM_NOT_PUBLISHED"
	ErrUnknownQuestion  ErrCode = "UNKNOWN_QUESTION"
	ErrNoSession        ErrCode = "NO_SESSION"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrValidation:
		return "One or more fields failed validation."
	case ErrInvalidPayload:
		return "The request body could not be parsed."
	case ErrIdentityRequired:
		return "A student or guest identity header is required."
	case ErrExamNotPublished:
		return "This exam has not been published yet."
	case ErrUnknownQuestion:
		return "The question does not exist in this exam."
	case ErrNoSession:
		return "No active exam session is loaded."
	case ErrInternal:
		return "An internal error occurred. Please try again."
	default:
		return "Unknown error."
	}
}
