package model

// Token lifecycle states as stored in tokens.status.  A token moves
// from ACTIVE to exactly one of USED or VOID and never back.  Expiry
// is evaluated against ExpiresAt at claim time; the stored status of
// an expired token may still read ACTIVE.
const (
	TokenStatusActive = "ACTIVE"
	TokenStatusUsed   = "USED"
	TokenStatusVoid   = "VOID"
)

// Token represents a signed reward voucher as stored in the `tokens`
// table.  The TokenString carries the full signed value handed to
// students; Amount is fixed at creation and never mutated.
//
// Fields:
//  ID          – primary key identifier.
//  TokenString – full signed token (CM1.<payload>.<sig>).
//  Amount      – value in minor currency units.
//  OneTime     – whether the token is single use (always true today).
//  ExpiresAt   – unix seconds after which the token cannot be claimed.
//  IssuedBy    – issuing teacher's user id, 0 for API-issued tokens.
//  Status      – ACTIVE, USED or VOID.
//  CreatedAt   – unix seconds of creation.
//  Description – free-form label shown to the claimer.
type Token struct {
	ID          uint64 // tokens.id
	TokenString string // tokens.token
	Amount      int64  // tokens.amount
	OneTime     bool   // tokens.one_time
	ExpiresAt   int64  // tokens.expires_at
	IssuedBy    uint64 // tokens.issued_by
	Status      string // tokens.status
	CreatedAt   int64  // tokens.created_at
	Description string // tokens.description
}
