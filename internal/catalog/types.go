// Package catalog holds the storefront domain model: users, books, reviews
// and shop items, plus the narrow store contracts the rest of the service
// depends on.
package catalog

// Role is the closed set of user roles.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is a registered account. The password hash never leaves the server.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Name         string `json:"name"`
	Age          *int   `json:"age,omitempty"`
	Role         Role   `json:"role"`
	PasswordHash string `json:"-"`
}

// Book is a catalog entry. AvgRating and ReviewsCount are aggregates computed
// at read time, not stored columns.
type Book struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	Author       string   `json:"author"`
	Year         *int     `json:"year,omitempty"`
	AvgRating    *float64 `json:"avg_rating,omitempty"`
	ReviewsCount int      `json:"reviews_count"`
}

// Review is a user's rating of a book. One review per (book, user).
type Review struct {
	ID          int64   `json:"id"`
	BookID      int64   `json:"book_id"`
	UserID      int64   `json:"user_id"`
	Rate        float64 `json:"rate"`
	Description string  `json:"description,omitempty"`
}

// ShopItem is a sellable listing for a book. Price is in minor units
// (cents); no floats for money.
type ShopItem struct {
	ID     int64 `json:"id"`
	BookID int64 `json:"book_id"`
	Price  int64 `json:"price"`
	Stock  int   `json:"stock"`
	Book   *Book `json:"book,omitempty"`
}

// BookUpdate carries a partial book mutation; nil fields are left untouched.
type BookUpdate struct {
	Title  *string
	Author *string
	Year   *int
}

// ShopItemUpdate carries a partial shop item mutation.
type ShopItemUpdate struct {
	Price *int64
	Stock *int
}
