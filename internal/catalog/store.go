package catalog

import "context"

// UserStore is the credential store contract. CreateUser fails with
// ErrAlreadyExists when the username is taken; lookups fail with ErrNotFound.
type UserStore interface {
	CreateUser(ctx context.Context, u User) (User, error)
	FindUser(ctx context.Context, id int64) (User, error)
	FindUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// BookStore covers books and their reviews.
type BookStore interface {
	CreateBook(ctx context.Context, b Book) (Book, error)
	FindBook(ctx context.Context, id int64) (Book, error)
	UpdateBook(ctx context.Context, id int64, upd BookUpdate) (Book, error)
	DeleteBook(ctx context.Context, id int64) error
	CountBooks(ctx context.Context) (int, error)
	ListBooks(ctx context.Context, offset, limit int) ([]Book, error)
	SearchBooks(ctx context.Context, query string) ([]Book, error)

	ListReviews(ctx context.Context, bookID int64) ([]Review, error)
	CreateReview(ctx context.Context, r Review) (Review, error)
}

// ShopStore covers shop listings. GetItemPrice is the narrow contract the
// purchase orchestrator snapshots prices through.
type ShopStore interface {
	CreateItem(ctx context.Context, item ShopItem) (ShopItem, error)
	FindItem(ctx context.Context, id int64) (ShopItem, error)
	UpdateItem(ctx context.Context, id int64, upd ShopItemUpdate) (ShopItem, error)
	DeleteItem(ctx context.Context, id int64) error
	CountItems(ctx context.Context) (int, error)
	ListItems(ctx context.Context, offset, limit int) ([]ShopItem, error)
	GetItemPrice(ctx context.Context, id int64) (int64, error)
}
