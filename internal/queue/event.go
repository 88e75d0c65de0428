// Package queue defines message payloads exchanged over the message broker.
package queue

// QueueTokenClaimed and QueueItemPurchased name the durable queues the
// server publishes to after each committed transaction.
const (
	QueueTokenClaimed  = "token.claimed"
	QueueItemPurchased = "item.purchased"
)

// TokenClaimedEvent is published when a token is successfully redeemed.
// It contains enough information for downstream consumers to log, notify,
// or trigger analytics without querying the primary database.
type TokenClaimedEvent struct {
	EventID       string `json:"event_id"`
	TxID          uint64 `json:"tx_id"`
	TokenID       uint64 `json:"token_id"`
	ClaimerID     uint64 `json:"claimer_id"`
	ClaimerName   string `json:"claimer_name"`
	Amount        int64  `json:"amount"`
	AmountDisplay string `json:"amount_display"`
	Description   string `json:"description"`
	BlockHash     string `json:"block_hash"`
	ClaimedAt     string `json:"claimed_at"`
}

// ItemPurchasedEvent is published when a shop purchase completes.
type ItemPurchasedEvent struct {
	EventID      string `json:"event_id"`
	PurchaseID   uint64 `json:"purchase_id"`
	UserID       uint64 `json:"user_id"`
	UserName     string `json:"user_name"`
	ItemID       uint64 `json:"item_id"`
	ItemName     string `json:"item_name"`
	Quantity     int64  `json:"quantity"`
	TotalPrice   int64  `json:"total_price"`
	TotalDisplay string `json:"total_display"`
	NewBalance   int64  `json:"new_balance"`
	BlockHash    string `json:"block_hash"`
	PurchasedAt  string `json:"purchased_at"`
}
