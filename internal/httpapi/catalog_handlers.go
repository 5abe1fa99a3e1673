package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/kamideathless/books-shop/internal/audit"
	"github.com/kamideathless/books-shop/internal/catalog"
	"github.com/kamideathless/books-shop/internal/pagination"
)

// pageParams parses the shared page/page_size query parameters, applying
// defaults and the size allow-list.
func pageParams(w http.ResponseWriter, r *http.Request) (pagination.Params, bool) {
	p := pagination.DefaultParams()
	q := r.URL.Query()
	if raw := q.Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			validationError(w, r, "page must be an integer")
			return pagination.Params{}, false
		}
		p.Page = v
	}
	if raw := q.Get("page_size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			validationError(w, r, "page_size must be an integer")
			return pagination.Params{}, false
		}
		p.PageSize = v
	}
	if err := p.Validate(); err != nil {
		validationError(w, r, err.Error())
		return pagination.Params{}, false
	}
	return p, true
}

func respondPage[T any](w http.ResponseWriter, r *http.Request, items []T, total int, p pagination.Params) {
	page, err := pagination.New(items, total, p)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type bookRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   *int   `json:"year"`
}

type bookUpdateRequest struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
	Year   *int    `json:"year"`
}

type reviewRequest struct {
	Rate        float64 `json:"rate"`
	Description string  `json:"description"`
}

func (a *API) handleListBooks(w http.ResponseWriter, r *http.Request) {
	p, ok := pageParams(w, r)
	if !ok {
		return
	}
	total, err := a.books.CountBooks(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	offset, limit, err := pagination.Window(p, total)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	items, err := a.books.ListBooks(r.Context(), offset, limit)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	respondPage(w, r, items, total, p)
}

func (a *API) handleSearchBooks(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		validationError(w, r, "query parameter q is required")
		return
	}
	items, err := a.books.SearchBooks(r.Context(), query)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "bookID")
	if !ok {
		return
	}
	book, err := a.books.FindBook(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (a *API) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		validationError(w, r, err.Error())
		return
	}
	if req.Title == "" || len(req.Title) > 128 {
		validationError(w, r, "title must be 1..128 characters")
		return
	}
	if req.Author == "" || len(req.Author) > 128 {
		validationError(w, r, "author must be 1..128 characters")
		return
	}
	book, err := a.books.CreateBook(r.Context(), catalog.Book{
		Title:  req.Title,
		Author: req.Author,
		Year:   req.Year,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "book.created", map[string]any{"book_id": book.ID})
	writeJSON(w, http.StatusCreated, book)
}

func (a *API) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "bookID")
	if !ok {
		return
	}
	var req bookUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		validationError(w, r, err.Error())
		return
	}
	if req.Title == nil && req.Author == nil && req.Year == nil {
		validationError(w, r, "at least one field is required")
		return
	}
	book, err := a.books.UpdateBook(r.Context(), id, catalog.BookUpdate{
		Title:  req.Title,
		Author: req.Author,
		Year:   req.Year,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "book.updated", map[string]any{"book_id": id})
	writeJSON(w, http.StatusOK, book)
}

func (a *API) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "bookID")
	if !ok {
		return
	}
	if err := a.books.DeleteBook(r.Context(), id); err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "book.deleted", map[string]any{"book_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "bookID")
	if !ok {
		return
	}
	reviews, err := a.books.ListReviews(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	// A book with no reviews reads as not-found, same as a missing book.
	if len(reviews) == 0 {
		handleDomainError(w, r, catalog.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (a *API) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "bookID")
	if !ok {
		return
	}
	p, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		validationError(w, r, err.Error())
		return
	}
	if req.Rate < 1 || req.Rate > 5 {
		validationError(w, r, "rate must be between 1 and 5")
		return
	}
	review, err := a.books.CreateReview(r.Context(), catalog.Review{
		BookID:      id,
		UserID:      p.ID,
		Rate:        req.Rate,
		Description: req.Description,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "review.created", map[string]any{
		"book_id":   id,
		"review_id": review.ID,
	})
	writeJSON(w, http.StatusCreated, review)
}
