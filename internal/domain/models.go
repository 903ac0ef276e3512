package domain

import "time"

// RawPayload is the untyped product object as observed from the marketplace's
// own API responses or from page-embedded state. Key spellings vary by source
// (itemid / item_id / itemID and so on); numeric values are json.Number when
// the payload came through the interceptor.
type RawPayload map[string]any

// Product is the canonical record held in the local collection.
type Product struct {
	ItemID            string    `json:"itemid"`
	ShopID            string    `json:"shopid,omitempty"`
	Name              string    `json:"name"`
	Price             float64   `json:"price"`
	OriginalPrice     float64   `json:"originalPrice"`
	Discount          int       `json:"discount"`
	Description       string    `json:"description"`
	Sold              int64     `json:"sold"`
	Rating            float64   `json:"rating"`
	ShopName          string    `json:"shopName"`
	Images            []string  `json:"images"`
	DescriptionImages []string  `json:"descriptionImages"`
	URL               string    `json:"url"`
	CapturedAt        time.Time `json:"capturedAt"`
}

// SyncReport aggregates the outcome of a bulk resync run.
type SyncReport struct {
	Total   int `json:"total"`
	Synced  int `json:"synced"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Article is the opaque generated-article payload handed through the paste
// flow. The agent only stores and forwards it; its shape belongs to the
// backend.
type Article map[string]any

// AuthStatus is the result of the identity check against the backend.
type AuthStatus struct {
	LoggedIn bool   `json:"loggedIn"`
	Username string `json:"username,omitempty"`
	Error    string `json:"error,omitempty"`
}
