package tokensale

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("tokensale: not found")
	ErrAlreadyExists = errors.New("tokensale: already exists")
	ErrInvalidInput  = errors.New("tokensale: invalid input")

	// Authorization errors
	ErrNotOwner     = errors.New("tokensale: caller is not the owner")
	ErrNotValidator = errors.New("tokensale: caller is not the validator")

	// Token errors
	ErrTokenNotFound     = errors.New("tokensale: token not found")
	ErrExceedsMaxSupply  = errors.New("tokensale: amount exceeding max supply")
	ErrInsufficientFunds = errors.New("tokensale: insufficient balance")

	// Allowance errors
	ErrNoSellAllowance  = errors.New("tokensale: contract has no rights to sell tokens on owner's behalf")
	ErrExceedsAllowance = errors.New("tokensale: amount exceeds left allowance")

	// Compliance errors
	ErrGateNotFound  = errors.New("tokensale: compliance gate not found")
	ErrKYCIncomplete = errors.New("tokensale: caller KYC is not completed yet")

	// Sale errors
	ErrSaleNotFound    = errors.New("tokensale: sale not found")
	ErrSalePaused      = errors.New("tokensale: contract is paused")
	ErrZeroPayment     = errors.New("tokensale: zero payment")
	ErrPaymentOverflow = errors.New("tokensale: payment times rate exceeds representable range")

	// Journal errors
	ErrJournalBufferFull = errors.New("tokensale: journal buffer full")

	// Store errors
	ErrStoreNotReady   = errors.New("tokensale: store not ready")
	ErrStoreClosed     = errors.New("tokensale: store is closed")
	ErrMigrationFailed = errors.New("tokensale: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("tokensale: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "tokensale: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("tokensale: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTokenNotFound) ||
		errors.Is(err, ErrGateNotFound) ||
		errors.Is(err, ErrSaleNotFound)
}

// IsAuthorization returns true if the error is an authorization failure.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrNotOwner) ||
		errors.Is(err, ErrNotValidator)
}

// IsAllowance returns true if the error is related to sell allowances.
func IsAllowance(err error) bool {
	return errors.Is(err, ErrNoSellAllowance) ||
		errors.Is(err, ErrExceedsAllowance)
}

// IsCompliance returns true if the error is a compliance rejection.
func IsCompliance(err error) bool {
	return errors.Is(err, ErrKYCIncomplete)
}

// IsCapacity returns true if the error is related to supply or balance limits.
func IsCapacity(err error) bool {
	return errors.Is(err, ErrExceedsMaxSupply) ||
		errors.Is(err, ErrInsufficientFunds)
}

// IsPurchaseRejected returns true if the error is one of the purchase
// preconditions rather than an infrastructure failure.
func IsPurchaseRejected(err error) bool {
	return errors.Is(err, ErrSalePaused) ||
		errors.Is(err, ErrZeroPayment) ||
		errors.Is(err, ErrPaymentOverflow) ||
		IsCompliance(err) ||
		IsAllowance(err) ||
		errors.Is(err, ErrInsufficientFunds)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrJournalBufferFull) ||
		errors.Is(err, ErrStoreNotReady)
}
