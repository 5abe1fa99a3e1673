package catalog

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
)

// Memory implements the store contracts with in-process concurrency safety.
// Used by tests and local development; the durable implementation lives in
// internal/store/pg.
type Memory struct {
	mu      sync.RWMutex
	users   map[int64]User
	books   map[int64]Book
	reviews map[int64]Review
	items   map[int64]ShopItem
	nextID  int64
}

var (
	_ UserStore = (*Memory)(nil)
	_ BookStore = (*Memory)(nil)
	_ ShopStore = (*Memory)(nil)
)

// NewMemory creates an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{
		users:   make(map[int64]User),
		books:   make(map[int64]Book),
		reviews: make(map[int64]Review),
		items:   make(map[int64]ShopItem),
	}
}

func (m *Memory) nextIDLocked() int64 {
	m.nextID++
	return m.nextID
}

// --- users ---

func (m *Memory) CreateUser(ctx context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return User{}, ErrAlreadyExists
		}
	}
	u.ID = m.nextIDLocked()
	if u.Role == "" {
		u.Role = RoleUser
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *Memory) FindUser(ctx context.Context, id int64) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) FindUserByUsername(ctx context.Context, username string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *Memory) ListUsers(ctx context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- books ---

func (m *Memory) CreateBook(ctx context.Context, b Book) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = m.nextIDLocked()
	b.AvgRating = nil
	b.ReviewsCount = 0
	m.books[b.ID] = b
	return b, nil
}

func (m *Memory) FindBook(ctx context.Context, id int64) (Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[id]
	if !ok {
		return Book{}, ErrNotFound
	}
	return m.withRatingLocked(b), nil
}

func (m *Memory) UpdateBook(ctx context.Context, id int64, upd BookUpdate) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return Book{}, ErrNotFound
	}
	if upd.Title != nil {
		b.Title = *upd.Title
	}
	if upd.Author != nil {
		b.Author = *upd.Author
	}
	if upd.Year != nil {
		b.Year = upd.Year
	}
	m.books[id] = b
	return m.withRatingLocked(b), nil
}

func (m *Memory) DeleteBook(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[id]; !ok {
		return ErrNotFound
	}
	delete(m.books, id)
	for rid, r := range m.reviews {
		if r.BookID == id {
			delete(m.reviews, rid)
		}
	}
	for iid, item := range m.items {
		if item.BookID == id {
			delete(m.items, iid)
		}
	}
	return nil
}

func (m *Memory) CountBooks(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.books), nil
}

func (m *Memory) ListBooks(ctx context.Context, offset, limit int) ([]Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.sortedBooksLocked()
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	out := make([]Book, 0, end-offset)
	for _, b := range all[offset:end] {
		out = append(out, m.withRatingLocked(b))
	}
	return out, nil
}

func (m *Memory) SearchBooks(ctx context.Context, query string) ([]Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	query = strings.ToLower(query)
	var out []Book
	for _, b := range m.sortedBooksLocked() {
		if strings.Contains(strings.ToLower(b.Title), query) ||
			strings.Contains(strings.ToLower(b.Author), query) {
			out = append(out, m.withRatingLocked(b))
		}
	}
	return out, nil
}

func (m *Memory) sortedBooksLocked() []Book {
	all := make([]Book, 0, len(m.books))
	for _, b := range m.books {
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

func (m *Memory) withRatingLocked(b Book) Book {
	var sum float64
	var count int
	for _, r := range m.reviews {
		if r.BookID == b.ID {
			sum += r.Rate
			count++
		}
	}
	b.ReviewsCount = count
	if count > 0 {
		avg := math.Round(sum/float64(count)*100) / 100
		b.AvgRating = &avg
	} else {
		b.AvgRating = nil
	}
	return b
}

// --- reviews ---

func (m *Memory) ListReviews(ctx context.Context, bookID int64) ([]Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.books[bookID]; !ok {
		return nil, ErrNotFound
	}
	var out []Review
	for _, r := range m.reviews {
		if r.BookID == bookID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CreateReview(ctx context.Context, r Review) (Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[r.BookID]; !ok {
		return Review{}, ErrNotFound
	}
	for _, existing := range m.reviews {
		if existing.BookID == r.BookID && existing.UserID == r.UserID {
			return Review{}, ErrAlreadyExists
		}
	}
	r.ID = m.nextIDLocked()
	m.reviews[r.ID] = r
	return r, nil
}

// --- shop items ---

func (m *Memory) CreateItem(ctx context.Context, item ShopItem) (ShopItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[item.BookID]; !ok {
		return ShopItem{}, ErrNotFound
	}
	for _, existing := range m.items {
		if existing.BookID == item.BookID {
			return ShopItem{}, ErrAlreadyExists
		}
	}
	item.ID = m.nextIDLocked()
	m.items[item.ID] = item
	return m.withBookLocked(item), nil
}

func (m *Memory) FindItem(ctx context.Context, id int64) (ShopItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return ShopItem{}, ErrNotFound
	}
	return m.withBookLocked(item), nil
}

func (m *Memory) UpdateItem(ctx context.Context, id int64, upd ShopItemUpdate) (ShopItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return ShopItem{}, ErrNotFound
	}
	if upd.Price != nil {
		item.Price = *upd.Price
	}
	if upd.Stock != nil {
		item.Stock = *upd.Stock
	}
	m.items[id] = item
	return m.withBookLocked(item), nil
}

func (m *Memory) DeleteItem(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *Memory) CountItems(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items), nil
}

func (m *Memory) ListItems(ctx context.Context, offset, limit int) ([]ShopItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]ShopItem, 0, len(m.items))
	for _, item := range m.items {
		all = append(all, item)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	out := make([]ShopItem, 0, end-offset)
	for _, item := range all[offset:end] {
		out = append(out, m.withBookLocked(item))
	}
	return out, nil
}

func (m *Memory) GetItemPrice(ctx context.Context, id int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return 0, ErrNotFound
	}
	return item.Price, nil
}

func (m *Memory) withBookLocked(item ShopItem) ShopItem {
	if b, ok := m.books[item.BookID]; ok {
		book := m.withRatingLocked(b)
		item.Book = &book
	}
	return item
}
