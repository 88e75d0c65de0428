package model

// Balance is a user's running balance as stored in the
// `user_balances` table.  Rows are created lazily on first credit or
// debit and only ever adjusted inside a claim or purchase
// transaction.
//
// Fields:
//  UserID    – primary key, references users.id.
//  Balance   – current balance in minor units, never negative.
//  UpdatedAt – unix seconds of the last adjustment.
type Balance struct {
	UserID    uint64 // user_balances.user_id
	Balance   int64  // user_balances.balance
	UpdatedAt int64  // user_balances.updated_at
}
