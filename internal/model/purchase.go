package model

// Purchase records a completed shop purchase as stored in the
// `purchases` table.  TotalPrice is item price times quantity, frozen
// at purchase time even if the item's price later changes.
//
// Fields:
//  ID         – primary key identifier, used as tx_id in the ledger.
//  UserID     – the buying student.
//  ItemID     – the purchased item.
//  Quantity   – number of units bought.
//  TotalPrice – total debited amount in minor units.
//  Status     – purchase status (COMPLETED today).
//  CreatedAt  – unix seconds of purchase.
type Purchase struct {
	ID         uint64 // purchases.id
	UserID     uint64 // purchases.user_id
	ItemID     uint64 // purchases.item_id
	Quantity   int64  // purchases.quantity
	TotalPrice int64  // purchases.total_price
	Status     string // purchases.status
	CreatedAt  int64  // purchases.created_at
}
