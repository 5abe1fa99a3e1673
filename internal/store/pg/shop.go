package pg

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"github.com/kamideathless/books-shop/internal/catalog"
)

const itemColumns = `
	i.id, i.book_id, i.price_minor, i.stock,
	b.title, b.author, b.year, avg(r.rate), count(r.id)
`

const itemJoins = `
	from shop_items i
	join books b on b.id = i.book_id
	left join reviews r on r.book_id = b.id
`

const itemGroupBy = `group by i.id, b.id`

func (s *Store) CreateItem(ctx context.Context, item catalog.ShopItem) (catalog.ShopItem, error) {
	if err := s.ensureBook(ctx, item.BookID); err != nil {
		return catalog.ShopItem{}, err
	}
	err := s.db.QueryRowContext(ctx, `
		insert into shop_items(book_id, price_minor, stock)
		values ($1,$2,$3)
		returning id
	`, item.BookID, item.Price, item.Stock).Scan(&item.ID)
	if _, ok := uniqueViolation(err); ok {
		return catalog.ShopItem{}, catalog.ErrAlreadyExists
	}
	if err != nil {
		return catalog.ShopItem{}, err
	}
	return s.FindItem(ctx, item.ID)
}

func (s *Store) FindItem(ctx context.Context, id int64) (catalog.ShopItem, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+itemColumns+itemJoins+`
		where i.id=$1
		`+itemGroupBy, id)
	item, err := scanItem(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.ShopItem{}, catalog.ErrNotFound
	}
	return item, err
}

func (s *Store) UpdateItem(ctx context.Context, id int64, upd catalog.ShopItemUpdate) (catalog.ShopItem, error) {
	var updated int64
	err := s.db.QueryRowContext(ctx, `
		update shop_items set
			price_minor = coalesce($2, price_minor),
			stock       = coalesce($3, stock)
		where id=$1
		returning id
	`, id, upd.Price, upd.Stock).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.ShopItem{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.ShopItem{}, err
	}
	return s.FindItem(ctx, id)
}

func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from shop_items where id=$1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (s *Store) CountItems(ctx context.Context) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `select count(*) from shop_items`).Scan(&total)
	return total, err
}

func (s *Store) ListItems(ctx context.Context, offset, limit int) ([]catalog.ShopItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+itemColumns+itemJoins+`
		`+itemGroupBy+`
		order by i.id
		offset $1 limit $2
	`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.ShopItem
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Store) GetItemPrice(ctx context.Context, id int64) (int64, error) {
	var price int64
	err := s.db.QueryRowContext(ctx, `select price_minor from shop_items where id=$1`, id).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, catalog.ErrNotFound
	}
	return price, err
}

func scanItem(scan func(dest ...any) error) (catalog.ShopItem, error) {
	var item catalog.ShopItem
	var book catalog.Book
	var year sql.NullInt64
	var avg sql.NullFloat64
	err := scan(&item.ID, &item.BookID, &item.Price, &item.Stock,
		&book.Title, &book.Author, &year, &avg, &book.ReviewsCount)
	if err != nil {
		return catalog.ShopItem{}, err
	}
	book.ID = item.BookID
	if year.Valid {
		v := int(year.Int64)
		book.Year = &v
	}
	if avg.Valid {
		rounded := math.Round(avg.Float64*100) / 100
		book.AvgRating = &rounded
	}
	item.Book = &book
	return item, nil
}
