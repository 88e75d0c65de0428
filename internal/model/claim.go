package model

// Claim records the single redemption of a token as stored in the
// `claims` table.  At most one claim row exists per token; the
// coordinator enforces this by consuming the token's ACTIVE status in
// the same transaction that inserts the claim.
//
// Fields:
//  ID        – primary key identifier, used as tx_id in the ledger.
//  TokenID   – the token that was redeemed.
//  Claimer   – user id of the redeeming student.
//  Amount    – credited value in minor units, copied from the token.
//  CreatedAt – unix seconds of redemption.
type Claim struct {
	ID        uint64 // claims.id
	TokenID   uint64 // claims.token_id
	Claimer   uint64 // claims.claimer
	Amount    int64  // claims.amount
	CreatedAt int64  // claims.created_at
}
