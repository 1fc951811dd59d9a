package domain

import "time"

// WishlistItem records that Subject wishlisted ProductID.
type WishlistItem struct {
	Subject   string    `json:"-"`
	ProductID string    `json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Membership is the wishlist flag for one product as shown to a subject.
type Membership struct {
	ProductID  string `json:"product_id"`
	Wishlisted bool   `json:"wishlisted"`
	Pending    bool   `json:"pending,omitempty"`
}
