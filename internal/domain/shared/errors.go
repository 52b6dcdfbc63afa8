package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
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
	ErrNotFound             = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists        = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput         = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict  = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized         = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden            = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState         = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrMissingTenantContext = NewDomainError("MISSING_TENANT_CONTEXT", "No tenant bound to the current context")
	ErrInvalidTransition    = NewDomainError("INVALID_TRANSITION", "Order status transition not allowed")
	ErrChecklistIncomplete  = NewDomainError("CHECKLIST_INCOMPLETE", "Order checklist has incomplete items")
	ErrMissingSignature     = NewDomainError("MISSING_SIGNATURE", "Customer signature is required")
	ErrMissingPhoto         = NewDomainError("MISSING_PHOTO", "An after-service photo is required")
	ErrInsufficientCredits  = NewDomainError("INSUFFICIENT_CREDITS", "Not enough credits available")
)
