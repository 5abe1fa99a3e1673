package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kamideathless/books-shop/internal/catalog"
)

func (s *Store) CreateUser(ctx context.Context, u catalog.User) (catalog.User, error) {
	if u.Role == "" {
		u.Role = catalog.RoleUser
	}
	err := s.db.QueryRowContext(ctx, `
		insert into users(username, name, age, role, password_hash)
		values ($1,$2,$3,$4,$5)
		returning id
	`, u.Username, u.Name, u.Age, string(u.Role), u.PasswordHash).Scan(&u.ID)
	if _, ok := uniqueViolation(err); ok {
		return catalog.User{}, catalog.ErrAlreadyExists
	}
	if err != nil {
		return catalog.User{}, err
	}
	return u, nil
}

func (s *Store) FindUser(ctx context.Context, id int64) (catalog.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		select id, username, name, age, role, password_hash
		from users where id=$1
	`, id))
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (catalog.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		select id, username, name, age, role, password_hash
		from users where username=$1
	`, username))
}

func (s *Store) ListUsers(ctx context.Context) ([]catalog.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, username, name, age, role, password_hash
		from users order by id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.User
	for rows.Next() {
		var u catalog.User
		var role string
		var age sql.NullInt64
		if err := rows.Scan(&u.ID, &u.Username, &u.Name, &age, &role, &u.PasswordHash); err != nil {
			return nil, err
		}
		u.Role = catalog.Role(role)
		if age.Valid {
			v := int(age.Int64)
			u.Age = &v
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) scanUser(row *sql.Row) (catalog.User, error) {
	var u catalog.User
	var role string
	var age sql.NullInt64
	err := row.Scan(&u.ID, &u.Username, &u.Name, &age, &role, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.User{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.User{}, err
	}
	u.Role = catalog.Role(role)
	if age.Valid {
		v := int(age.Int64)
		u.Age = &v
	}
	return u, nil
}
