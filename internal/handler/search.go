package handler

import (
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-api/internal/domain/product"
)

type searchProductResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	BasePrice   string    `json:"base_price"`
	CreatedAt   time.Time `json:"created_at"`
}

type searchResponse struct {
	Products []searchProductResponse `json:"products"`
	Total    int                     `json:"total"`
	Limit    int                     `json:"limit"`
	Offset   int                     `json:"offset"`
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := product.SearchQuery{
		Term:     q.Get("q"),
		Category: q.Get("category"),
	}
	query.Limit, _ = strconv.Atoi(q.Get("limit"))
	query.Offset, _ = strconv.Atoi(q.Get("offset"))
	if query.Limit <= 0 || query.Limit > 100 {
		query.Limit = 20
	}
	if query.Offset < 0 {
		query.Offset = 0
	}

	products, total, err := h.products.Search(r.Context(), query)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := searchResponse{
		Products: make([]searchProductResponse, len(products)),
		Total:    total,
		Limit:    query.Limit,
		Offset:   query.Offset,
	}
	for i, p := range products {
		resp.Products[i] = searchProductResponse{
			ID:          p.ID,
			Name:        p.Name,
			Slug:        p.Slug,
			Description: p.Description,
			Category:    p.Category,
			BasePrice:   p.BasePrice.StringFixed(2),
			CreatedAt:   p.CreatedAt,
		}
	}
	respond(w, http.StatusOK, resp)
}

const suggestionLimit = 8

// searchSuggestions fans out the product-name and category prefix lookups
// concurrently and merges the results.
func (h *Handler) searchSuggestions(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("q")
	if prefix == "" {
		respond(w, http.StatusOK, product.Suggestions{Products: []string{}, Categories: []string{}})
		return
	}

	var s product.Suggestions
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		s.Products, err = h.products.SuggestProducts(ctx, prefix, suggestionLimit)
		return err
	})
	g.Go(func() error {
		var err error
		s.Categories, err = h.products.SuggestCategories(ctx, prefix, suggestionLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		respondDomainError(w, r, err)
		return
	}

	if s.Products == nil {
		s.Products = []string{}
	}
	if s.Categories == nil {
		s.Categories = []string{}
	}
	respond(w, http.StatusOK, s)
}
