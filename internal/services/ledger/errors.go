package ledger

import "errors"

// Error kinds. Match them with errors.Is.
var (
	// ErrInvalidArgument marks malformed or rule-violating input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound marks a reference to an account that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientFunds marks a mutation that would leave a negative balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Reasons returned to callers unchanged.
const (
	ReasonAmountNotPositive      = "amount must be positive"
	ReasonAmountNotNegative      = "amount must be negative"
	ReasonInsufficientFunds      = "insufficient funds"
	ReasonNotEnoughForTransfer   = "not enough amount for transfer"
	ReasonSameAccount            = "accounts must differ"
	ReasonAccountNotFound        = "account not found"
	ReasonAccountIDNotPositive   = "account id must be positive"
	ReasonNegativeInitialBalance = "initial balance must not be negative"
)

// Error is a business rule rejection. It is never retried.
type Error struct {
	kind   error
	Reason string
}

func (e *Error) Error() string { return e.Reason }

func (e *Error) Unwrap() error { return e.kind }

// Reason extracts the caller-facing reason from err.
func Reason(err error) (string, bool) {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Reason, true
	}

	return "", false
}

func invalidArgument(reason string) error {
	return &Error{kind: ErrInvalidArgument, Reason: reason}
}

func notFound(reason string) error {
	return &Error{kind: ErrNotFound, Reason: reason}
}

func insufficientFunds(reason string) error {
	return &Error{kind: ErrInsufficientFunds, Reason: reason}
}
