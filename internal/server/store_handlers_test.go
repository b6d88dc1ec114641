package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-dev/storefront/internal/models"
)

func insertProducts(t *testing.T, srv *Server, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		product := models.Product{
			Title:       fmt.Sprintf("Product %02d", i),
			Description: fmt.Sprintf("Description for product %d", i),
			UnitPrice:   float64(i) * 1.5,
		}
		require.NoError(t, srv.db.Create(&product).Error)
	}
}

func listPage(t *testing.T, srv *Server, path string) ProductPage {
	t.Helper()
	w := doJSON(t, srv, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page ProductPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	return page
}

func TestListProducts(t *testing.T) {
	srv := newTestServer(t)
	insertProducts(t, srv, 5)

	page := listPage(t, srv, "/store/products/")
	assert.Equal(t, int64(5), page.Count)
	require.Len(t, page.Results, 5)
	assert.Equal(t, "Product 01", page.Results[0].Title)
	assert.Equal(t, 1.5, page.Results[0].UnitPrice)
}

func TestListProductsPagination(t *testing.T) {
	srv := newTestServer(t)
	insertProducts(t, srv, 7)

	page := listPage(t, srv, "/store/products/?limit=3&page=1")
	assert.Equal(t, int64(7), page.Count)
	require.Len(t, page.Results, 3)
	assert.Equal(t, "Product 01", page.Results[0].Title)

	page = listPage(t, srv, "/store/products/?limit=3&page=3")
	assert.Equal(t, int64(7), page.Count)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Product 07", page.Results[0].Title)

	// Past the end is an empty page, not an error
	page = listPage(t, srv, "/store/products/?limit=3&page=9")
	assert.Empty(t, page.Results)
}

func TestListProductsClampsParams(t *testing.T) {
	srv := newTestServer(t)
	insertProducts(t, srv, 3)

	page := listPage(t, srv, "/store/products/?limit=-1&page=0")
	assert.Equal(t, int64(3), page.Count)
	assert.Len(t, page.Results, 3)

	page = listPage(t, srv, "/store/products/?limit=junk&page=junk")
	assert.Len(t, page.Results, 3)
}

func TestSeedProducts(t *testing.T) {
	srv := newTestServer(t)

	seedPath := filepath.Join(t.TempDir(), "products.yaml")
	seedYAML := `products:
  - title: Espresso Machine
    description: Semi-automatic espresso machine
    unit_price: 349.99
  - title: Burr Grinder
    description: Conical burr coffee grinder
    unit_price: 129.50
`
	require.NoError(t, os.WriteFile(seedPath, []byte(seedYAML), 0o644))

	require.NoError(t, srv.seedProducts(seedPath))

	page := listPage(t, srv, "/store/products/")
	assert.Equal(t, int64(2), page.Count)
	assert.Equal(t, "Espresso Machine", page.Results[0].Title)
	assert.Equal(t, 349.99, page.Results[0].UnitPrice)

	// Seeding again is a no-op once the table has rows
	require.NoError(t, srv.seedProducts(seedPath))
	page = listPage(t, srv, "/store/products/")
	assert.Equal(t, int64(2), page.Count)
}

func TestSeedProductsMissingFile(t *testing.T) {
	srv := newTestServer(t)
	assert.Error(t, srv.seedProducts(filepath.Join(t.TempDir(), "missing.yaml")))
}
