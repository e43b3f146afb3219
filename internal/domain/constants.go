package domain

// MaxNotesLength bounds client and admin notes, counted in characters.
const MaxNotesLength = 500

// RequestType is the kind of funds movement a client asks for.
type RequestType string

const (
	RequestTypeDeposit    RequestType = "deposit"
	RequestTypeWithdrawal RequestType = "withdrawal"
)

func (t RequestType) Valid() bool {
	return t == RequestTypeDeposit || t == RequestTypeWithdrawal
}

// RequestStatus is the lifecycle state of a transaction request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// LedgerType classifies an append-only ledger record.
type LedgerType string

const (
	LedgerDeposit  LedgerType = "deposit"
	LedgerWithdraw LedgerType = "withdraw"
	LedgerTransfer LedgerType = "transfer"
	LedgerBonus    LedgerType = "bonus"
)

// Pool names one of the two sub-balances of an account.
type Pool string

const (
	PoolWallet  Pool = "wallet"
	PoolTrading Pool = "trading"
)

func (p Pool) Valid() bool {
	return p == PoolWallet || p == PoolTrading
}

// Request decisions accepted by the approve-request endpoint.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

const (
	LedgerStatusCompleted = "completed"

	AccountStatusActive = "active"

	DefaultCurrency = "USD"
	DefaultLeverage = 100
)
