package model

// Base represents a military base. Read-only reference data owned by the
// upstream API.
type Base struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// Asset represents an asset type held at a base.
type Asset struct {
	ID              int64  `json:"id"`
	Type            string `json:"type"`
	Name            string `json:"name"`
	CurrentQuantity int    `json:"current_quantity"`
	BaseID          int64  `json:"baseId"`

	// Embedded by the upstream on some endpoints, absent on others.
	Base *Base `json:"Base,omitempty"`
}

// Purchase represents a recorded purchase of an asset for a base.
// Append-only: the upstream exposes create and list, never edit or delete.
type Purchase struct {
	ID       int64 `json:"id"`
	AssetID  int64 `json:"assetId"`
	Quantity int   `json:"quantity"`
	BaseID   int64 `json:"baseId"`
	Date     Date  `json:"date"`

	Asset *Asset `json:"Asset,omitempty"`
}

// Assignment represents a quantity of an asset handed to an assignee.
// The only mutation is the one-way expended transition.
type Assignment struct {
	ID       int64  `json:"id"`
	AssetID  int64  `json:"assetId"`
	Quantity int    `json:"quantity"`
	Assignee string `json:"assignee"`
	Date     Date   `json:"date"`
	Expended bool   `json:"expended"`

	Asset *Asset `json:"asset,omitempty"`
}

// Transfer represents an asset movement between two bases. Create-only.
type Transfer struct {
	ID         int64 `json:"id"`
	AssetID    int64 `json:"assetId"`
	FromBaseID int64 `json:"fromBaseId"`
	ToBaseID   int64 `json:"toBaseId"`
	Quantity   int   `json:"quantity"`
	Timestamp  Date  `json:"timestamp"`

	Asset    *Asset `json:"Asset,omitempty"`
	FromBase *Base  `json:"fromBase,omitempty"`
	ToBase   *Base  `json:"toBase,omitempty"`
}

// Metrics is the precomputed dashboard summary returned by the upstream.
type Metrics struct {
	TotalAssets      int        `json:"totalAssets"`
	PendingTransfers int        `json:"pendingTransfers"`
	RecentPurchases  []Purchase `json:"recentPurchases"`
}
