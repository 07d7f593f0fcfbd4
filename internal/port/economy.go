package port

import "github.com/google/uuid"

// Economy is the currency capability supplied by the host engine. All calls
// must happen on the host's synchronous context (see SyncScheduler).
type Economy interface {
	// Balance returns the current balance of an account.
	Balance(id uuid.UUID) float64

	// Withdraw removes amount from an account, returns false if it could not.
	Withdraw(id uuid.UUID, amount float64) bool

	// Deposit adds amount to an account, returns false if it could not.
	Deposit(id uuid.UUID, amount float64) bool

	// DepositVault adds amount to the system vault.
	DepositVault(amount float64) bool
}
