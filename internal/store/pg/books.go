package pg

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"github.com/kamideathless/books-shop/internal/catalog"
)

const bookColumns = `
	b.id, b.title, b.author, b.year, avg(r.rate), count(r.id)
`

func (s *Store) CreateBook(ctx context.Context, b catalog.Book) (catalog.Book, error) {
	err := s.db.QueryRowContext(ctx, `
		insert into books(title, author, year)
		values ($1,$2,$3)
		returning id
	`, b.Title, b.Author, b.Year).Scan(&b.ID)
	if err != nil {
		return catalog.Book{}, err
	}
	return b, nil
}

func (s *Store) FindBook(ctx context.Context, id int64) (catalog.Book, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+bookColumns+`
		from books b
		left join reviews r on r.book_id = b.id
		where b.id=$1
		group by b.id
	`, id)
	book, err := scanBook(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Book{}, catalog.ErrNotFound
	}
	return book, err
}

func (s *Store) UpdateBook(ctx context.Context, id int64, upd catalog.BookUpdate) (catalog.Book, error) {
	// coalesce keeps the stored value for fields the caller did not send.
	var updated int64
	err := s.db.QueryRowContext(ctx, `
		update books set
			title  = coalesce($2, title),
			author = coalesce($3, author),
			year   = coalesce($4, year)
		where id=$1
		returning id
	`, id, upd.Title, upd.Author, upd.Year).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Book{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Book{}, err
	}
	return s.FindBook(ctx, id)
}

func (s *Store) DeleteBook(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from books where id=$1`, id)
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

func (s *Store) CountBooks(ctx context.Context) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `select count(*) from books`).Scan(&total)
	return total, err
}

func (s *Store) ListBooks(ctx context.Context, offset, limit int) ([]catalog.Book, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+bookColumns+`
		from books b
		left join reviews r on r.book_id = b.id
		group by b.id
		order by b.id
		offset $1 limit $2
	`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBooks(rows)
}

func (s *Store) SearchBooks(ctx context.Context, query string) ([]catalog.Book, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+bookColumns+`
		from books b
		left join reviews r on r.book_id = b.id
		where b.title ilike '%' || $1 || '%'
		   or b.author ilike '%' || $1 || '%'
		group by b.id
		order by b.id
	`, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBooks(rows)
}

func (s *Store) ListReviews(ctx context.Context, bookID int64) ([]catalog.Review, error) {
	if err := s.ensureBook(ctx, bookID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, book_id, user_id, rate, coalesce(description, '')
		from reviews where book_id=$1 order by id
	`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Review
	for rows.Next() {
		var r catalog.Review
		if err := rows.Scan(&r.ID, &r.BookID, &r.UserID, &r.Rate, &r.Description); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CreateReview(ctx context.Context, r catalog.Review) (catalog.Review, error) {
	if err := s.ensureBook(ctx, r.BookID); err != nil {
		return catalog.Review{}, err
	}
	err := s.db.QueryRowContext(ctx, `
		insert into reviews(book_id, user_id, rate, description)
		values ($1,$2,$3,nullif($4,''))
		returning id
	`, r.BookID, r.UserID, r.Rate, r.Description).Scan(&r.ID)
	if _, ok := uniqueViolation(err); ok {
		return catalog.Review{}, catalog.ErrAlreadyExists
	}
	if err != nil {
		return catalog.Review{}, err
	}
	return r, nil
}

func (s *Store) ensureBook(ctx context.Context, id int64) error {
	var one int
	err := s.db.QueryRowContext(ctx, `select 1 from books where id=$1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.ErrNotFound
	}
	return err
}

func scanBook(scan func(dest ...any) error) (catalog.Book, error) {
	var b catalog.Book
	var year sql.NullInt64
	var avg sql.NullFloat64
	if err := scan(&b.ID, &b.Title, &b.Author, &year, &avg, &b.ReviewsCount); err != nil {
		return catalog.Book{}, err
	}
	if year.Valid {
		v := int(year.Int64)
		b.Year = &v
	}
	if avg.Valid {
		rounded := math.Round(avg.Float64*100) / 100
		b.AvgRating = &rounded
	}
	return b, nil
}

func collectBooks(rows *sql.Rows) ([]catalog.Book, error) {
	var out []catalog.Book
	for rows.Next() {
		b, err := scanBook(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
