package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error codes for domain errors.
const (
	ErrCodeQueueFull       = "QUEUE_FULL"
	ErrCodePoolClosed      = "POOL_CLOSED"
	ErrCodeTaskInterrupted = "TASK_INTERRUPTED"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// DomainError is a business-level error carrying a stable code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrQueueFull       = NewDomainError(ErrCodeQueueFull, "async writer queue is full")
	ErrPoolClosed      = NewDomainError(ErrCodePoolClosed, "async writer pool is shut down")
	ErrTaskInterrupted = NewDomainError(ErrCodeTaskInterrupted, "long-running task was interrupted")
)
