//go:build integration

package integration

import (
	"net/http"
	"slices"
	"testing"
)

func TestSearch_All(t *testing.T) {
	resp := doGet(t, "/api/search")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	result := decodeData[searchResult](t, resp)
	if result.Total != 4 {
		t.Errorf("total: got %d, want 4", result.Total)
	}
	if len(result.Products) != 4 {
		t.Errorf("products: got %d, want 4", len(result.Products))
	}
	if result.Limit != 20 {
		t.Errorf("limit: got %d, want 20", result.Limit)
	}
}

func TestSearch_ByTerm(t *testing.T) {
	resp := doGet(t, "/api/search?q=denim")
	defer resp.Body.Close()

	result := decodeData[searchResult](t, resp)
	if result.Total != 1 {
		t.Fatalf("total: got %d, want 1", result.Total)
	}
	if result.Products[0].Name != "Washed Denim Jacket" {
		t.Errorf("name: got %q, want %q", result.Products[0].Name, "Washed Denim Jacket")
	}
	if result.Products[0].BasePrice != "89.00" {
		t.Errorf("base_price: got %q, want %q", result.Products[0].BasePrice, "89.00")
	}
}

func TestSearch_ByCategory(t *testing.T) {
	resp := doGet(t, "/api/search?category=shoes")
	defer resp.Body.Close()

	result := decodeData[searchResult](t, resp)
	if result.Total != 1 {
		t.Fatalf("total: got %d, want 1", result.Total)
	}
	if result.Products[0].Slug != "low-canvas-sneaker" {
		t.Errorf("slug: got %q, want %q", result.Products[0].Slug, "low-canvas-sneaker")
	}
}

func TestSearch_Pagination(t *testing.T) {
	resp := doGet(t, "/api/search?limit=2&offset=2")
	defer resp.Body.Close()

	result := decodeData[searchResult](t, resp)
	if result.Total != 4 {
		t.Errorf("total: got %d, want 4", result.Total)
	}
	if len(result.Products) != 2 {
		t.Errorf("page size: got %d, want 2", len(result.Products))
	}
}

func TestSuggestions_Prefix(t *testing.T) {
	resp := doGet(t, "/api/search/suggestions?q=mer")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	s := decodeData[suggestions](t, resp)
	if !slices.Contains(s.Products, "Merino Wool Beanie") {
		t.Errorf("products %v do not contain %q", s.Products, "Merino Wool Beanie")
	}
}

func TestSuggestions_CategoryPrefix(t *testing.T) {
	resp := doGet(t, "/api/search/suggestions?q=out")
	defer resp.Body.Close()

	s := decodeData[suggestions](t, resp)
	if !slices.Contains(s.Categories, "outerwear") {
		t.Errorf("categories %v do not contain %q", s.Categories, "outerwear")
	}
}

func TestSuggestions_EmptyPrefix(t *testing.T) {
	resp := doGet(t, "/api/search/suggestions")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	s := decodeData[suggestions](t, resp)
	if len(s.Products) != 0 || len(s.Categories) != 0 {
		t.Errorf("expected empty suggestions, got %v / %v", s.Products, s.Categories)
	}
}
