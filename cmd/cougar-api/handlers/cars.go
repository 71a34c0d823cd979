// Package handlers provides HTTP handlers for the cougar API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/luifiio/cougar/internal/catalog"
	"github.com/luifiio/cougar/internal/enrich"
	"github.com/luifiio/cougar/internal/observability"
)

// Catalog is the local item search.
type Catalog interface {
	Path() string
	Search(q string) ([]catalog.Item, error)
}

// Resolver builds an item from the knowledge sources for a query.
type Resolver interface {
	Resolve(ctx context.Context, query string) (*enrich.Result, error)
}

// CarsHandler serves catalog search.
type CarsHandler struct {
	logger   *observability.Logger
	catalog  Catalog
	resolver Resolver
}

// NewCarsHandler creates a new cars handler. resolver may be nil to disable
// the encyclopedia fallback.
func NewCarsHandler(logger *observability.Logger, c Catalog, resolver Resolver) *CarsHandler {
	return &CarsHandler{
		logger:   logger.WithComponent("cars"),
		catalog:  c,
		resolver: resolver,
	}
}

// Search handles GET /cars?q=. Local matches win; with none, the query is
// resolved against Wikipedia and the result is a one-item or empty list.
func (h *CarsHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.WithContext(ctx)
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	items, err := h.catalog.Search(q)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load catalog")
		writeError(w, http.StatusInternalServerError, "catalog unavailable", err.Error())
		return
	}
	if len(items) > 0 || q == "" || h.resolver == nil {
		writeJSON(w, logger, items)
		return
	}

	res, err := h.resolver.Resolve(ctx, q)
	if err != nil {
		logger.Warn().Err(err).Str("query", q).Msg("Resolution aborted")
		writeError(w, http.StatusServiceUnavailable, "resolution aborted", err.Error())
		return
	}
	logger.Info().
		Str("query", q).
		Str("outcome", string(res.Outcome)).
		Str("title", res.Title).
		Msg("Query resolved")

	out := []catalog.Item{}
	if res.Found() {
		out = append(out, *res.Item)
	}
	writeJSON(w, logger, out)
}

// DataFile handles GET /data/cars.json.
func (h *CarsHandler) DataFile(w http.ResponseWriter, r *http.Request) {
	dir, name := filepath.Split(h.catalog.Path())
	if _, err := os.Stat(h.catalog.Path()); errors.Is(err, fs.ErrNotExist) {
		writeError(w, http.StatusNotFound, "data not found; run ingest", "")
		return
	}
	File(dir, name, "application/json")(w, r)
}

func writeJSON(w http.ResponseWriter, logger *observability.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]string{
		"error":   message,
		"message": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	_ = json.NewEncoder(w).Encode(resp)
}
