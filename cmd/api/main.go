// Command api runs the storefront HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kamideathless/books-shop/internal/auth"
	"github.com/kamideathless/books-shop/internal/catalog"
	"github.com/kamideathless/books-shop/internal/config"
	"github.com/kamideathless/books-shop/internal/httpapi"
	"github.com/kamideathless/books-shop/internal/obs"
	"github.com/kamideathless/books-shop/internal/purchase"
	"github.com/kamideathless/books-shop/internal/store/pg"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := run(); err != nil {
		obs.LogRequest(map[string]any{
			"ts":    time.Now().UTC().Format(time.RFC3339Nano),
			"level": "error",
			"msg":   "server exited",
			"error": err.Error(),
		})
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	tokens, err := auth.NewService(cfg.AuthSecret,
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
	)
	if err != nil {
		return err
	}

	var (
		users     catalog.UserStore
		books     catalog.BookStore
		shop      catalog.ShopStore
		ledger    purchase.Ledger
		prices    purchase.PriceSource
		readiness func(ctx context.Context) error
	)
	if cfg.PGDSN != "" {
		store, err := pg.Open(cfg.PGDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		users, books, shop = store, store, store
		ledger, prices = store, store
		readiness = httpapi.DBReady(store.DB())
	} else {
		// No DSN configured: volatile in-memory stores for local development.
		mem := catalog.NewMemory()
		users, books, shop = mem, mem, mem
		ledger, prices = purchase.NewMemoryLedger(), mem
	}

	api := httpapi.New(httpapi.Options{
		Tokens:        tokens,
		Users:         users,
		Books:         books,
		Shop:          shop,
		Purchases:     purchase.NewOrchestrator(ledger, prices),
		Ready:         readiness,
		Version:       version,
		RatePerSec:    float64(cfg.RateLimitPerSec),
		RateBurst:     cfg.RateLimitBurst,
		MaxBodyBytes:  cfg.MaxBodyBytes,
		SecureCookies: cfg.SecureCookies,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		obs.LogRequest(map[string]any{
			"ts":    time.Now().UTC().Format(time.RFC3339Nano),
			"level": "info",
			"msg":   "server listening",
			"addr":  cfg.ListenAddr,
		})
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		obs.LogRequest(map[string]any{
			"ts":     time.Now().UTC().Format(time.RFC3339Nano),
			"level":  "info",
			"msg":    "shutting down",
			"signal": sig.String(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
