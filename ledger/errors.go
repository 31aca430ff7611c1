package ledger

import "github.com/pkg/errors"

// Errors returned by Token operations. Callers match them with errors.Is; the returned errors are wrapped with the
// identities and amounts involved.
var (
	// ErrInvalidSender is returned when the null identity is used as the source of a transfer or burn.
	ErrInvalidSender = errors.New("invalid sender")
	// ErrInvalidReceiver is returned when the null identity is used as the destination of a transfer or mint.
	ErrInvalidReceiver = errors.New("invalid receiver")
	// ErrInvalidApprover is returned when the null identity attempts to grant an allowance.
	ErrInvalidApprover = errors.New("invalid approver")
	// ErrInvalidSpender is returned when an allowance is granted to the null identity.
	ErrInvalidSpender = errors.New("invalid spender")
	// ErrInsufficientBalance is returned when a transfer or burn exceeds the source balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientAllowance is returned when a delegated transfer exceeds the spender's allowance.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	// ErrSupplyOverflow is returned when a mint would overflow the total supply.
	ErrSupplyOverflow = errors.New("total supply overflow")
)
