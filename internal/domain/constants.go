package domain

const (
	// BalanceTypeCredit marks a position where the ledger owes the customer.
	BalanceTypeCredit = "CR"
	// BalanceTypeDebit marks a position where the customer owes the ledger.
	BalanceTypeDebit = "DR"

	CustomerStateUnverified = "UNVERIFIED"
	CustomerStateVerified   = "VERIFIED"

	AuditActionRegister  = "register"
	AuditActionDeposit   = "deposit"
	AuditActionWithdraw  = "withdraw"
	AuditActionMarkKnown = "mark_known"

	CredentialTypeCustomer = "customer_badge"
	CredentialTypeAdmin    = "admin_badge"
)
