package model

// Shop item states as stored in shop_items.status.  Items are soft
// deleted by flipping them to INACTIVE so historical purchases keep a
// valid reference.
const (
	ItemStatusActive   = "ACTIVE"
	ItemStatusInactive = "INACTIVE"
)

// UnlimitedStock is the sentinel stock value meaning the item never
// runs out; finite stock is decremented on purchase.
const UnlimitedStock = -1

// Item is a purchasable reward as stored in the `shop_items` table.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name.
//  Description – free-form description.
//  Price       – unit price in minor units.
//  Category    – grouping label (food, education, ...).
//  ImageURL    – optional image location (nullable).
//  Stock       – remaining units, or UnlimitedStock.
//  Status      – ACTIVE or INACTIVE.
//  CreatedAt   – unix seconds of creation.
//  UpdatedAt   – unix seconds of last modification.
type Item struct {
	ID          uint64  // shop_items.id
	Name        string  // shop_items.name
	Description string  // shop_items.description
	Price       int64   // shop_items.price
	Category    string  // shop_items.category
	ImageURL    *string // shop_items.image_url (nullable)
	Stock       int64   // shop_items.stock
	Status      string  // shop_items.status
	CreatedAt   int64   // shop_items.created_at
	UpdatedAt   int64   // shop_items.updated_at
}
