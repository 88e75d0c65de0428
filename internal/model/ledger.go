package model

// LedgerBlock is one immutable entry of the hash-chained ledger as
// stored in the `ledger` table.  Each block commits the previous
// block's hash, so retroactive edits break every later block.  Blocks
// are append-only; no update or delete path exists anywhere in the
// codebase.
//
// Fields:
//  ID         – monotonic block sequence number (primary key).
//  TxID       – id of the claim or purchase this block chronicles.
//  PrevHash   – record hash of the preceding block ("" for block 1).
//  RecordHash – SHA-256 over prev hash, block data and timestamp.
//  CreatedAt  – unix seconds; the same value is hashed into RecordHash.
//  BlockData  – compact JSON snapshot of the transaction.  Empty on
//               blocks written by early versions of the schema.
type LedgerBlock struct {
	ID         uint64 // ledger.id
	TxID       uint64 // ledger.tx_id
	PrevHash   string // ledger.prev_hash
	RecordHash string // ledger.record_hash
	CreatedAt  int64  // ledger.created_at
	BlockData  string // ledger.block_data
}
