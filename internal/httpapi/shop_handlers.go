package httpapi

import (
	"net/http"

	"github.com/kamideathless/books-shop/internal/audit"
	"github.com/kamideathless/books-shop/internal/catalog"
	"github.com/kamideathless/books-shop/internal/obs"
	"github.com/kamideathless/books-shop/internal/pagination"
)

type shopItemRequest struct {
	BookID int64 `json:"book_id"`
	Price  int64 `json:"price"`
	Stock  int   `json:"stock"`
}

type shopItemUpdateRequest struct {
	Price *int64 `json:"price"`
	Stock *int   `json:"stock"`
}

type purchaseRequest struct {
	ShopItemID int64 `json:"shop_item_id"`
}

// purchaseResponse is the payment hand-off payload. PaymentID doubles as the
// idempotence key of the underlying intent.
type purchaseResponse struct {
	TransactionID int64  `json:"transaction_id"`
	PaymentID     string `json:"payment_id"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
	Confirmation  string `json:"confirmation"`
}

func (a *API) handleListItems(w http.ResponseWriter, r *http.Request) {
	p, ok := pageParams(w, r)
	if !ok {
		return
	}
	total, err := a.shop.CountItems(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	offset, limit, err := pagination.Window(p, total)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	items, err := a.shop.ListItems(r.Context(), offset, limit)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	respondPage(w, r, items, total, p)
}

func (a *API) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}
	item, err := a.shop.FindItem(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req shopItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		validationError(w, r, err.Error())
		return
	}
	if req.BookID <= 0 {
		validationError(w, r, "book_id must be a positive integer")
		return
	}
	if req.Price <= 0 {
		validationError(w, r, "price must be positive")
		return
	}
	if req.Stock < 0 {
		validationError(w, r, "stock must not be negative")
		return
	}
	item, err := a.shop.CreateItem(r.Context(), catalog.ShopItem{
		BookID: req.BookID,
		Price:  req.Price,
		Stock:  req.Stock,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "shop_item.created", map[string]any{"item_id": item.ID})
	writeJSON(w, http.StatusCreated, item)
}

func (a *API) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}
	var req shopItemUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		validationError(w, r, err.Error())
		return
	}
	if req.Price == nil && req.Stock == nil {
		validationError(w, r, "at least one field is required")
		return
	}
	if req.Price != nil && *req.Price <= 0 {
		validationError(w, r, "price must be positive")
		return
	}
	if req.Stock != nil && *req.Stock < 0 {
		validationError(w, r, "stock must not be negative")
		return
	}
	item, err := a.shop.UpdateItem(r.Context(), id, catalog.ShopItemUpdate{
		Price: req.Price,
		Stock: req.Stock,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "shop_item.updated", map[string]any{"item_id": id})
	writeJSON(w, http.StatusOK, item)
}

func (a *API) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}
	if err := a.shop.DeleteItem(r.Context(), id); err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "shop_item.deleted", map[string]any{"item_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handlePurchase(w http.ResponseWriter, r *http.Request) {
	p, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	var req purchaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		validationError(w, r, err.Error())
		return
	}
	if req.ShopItemID <= 0 {
		validationError(w, r, "shop_item_id must be a positive integer")
		return
	}

	tx, created, err := a.purchases.CreatePurchase(r.Context(), req.ShopItemID, p.ID)
	if err != nil {
		obs.CountPurchaseIntent("rejected")
		handleDomainError(w, r, err)
		return
	}

	kind := "resumed"
	code := http.StatusOK
	if created {
		kind = "created"
		code = http.StatusCreated
	}
	obs.CountPurchaseIntent(kind)
	_ = audit.LogEvent(r.Context(), "purchase.intent", map[string]any{
		"transaction_id": tx.ID,
		"shop_item_id":   tx.ShopItemID,
		"amount":         tx.Amount,
		"created":        created,
	})
	writeJSON(w, code, purchaseResponse{
		TransactionID: tx.ID,
		PaymentID:     tx.IdempotenceKey,
		Amount:        tx.Amount,
		Status:        string(tx.Status),
		Confirmation:  "conf-" + tx.IdempotenceKey,
	})
}

func (a *API) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "txID")
	if !ok {
		return
	}
	tx, err := a.purchases.GetTransaction(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}
