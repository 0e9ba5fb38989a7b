package utils

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseQuery(t *testing.T, query string) Pagination {
	t.Helper()
	var got Pagination
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		got = ParsePagination(c)
		return nil
	})
	_, err := app.Test(httptest.NewRequest("GET", "/"+query, nil))
	require.NoError(t, err)
	return got
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query string
		want  Pagination
	}{
		{"", Pagination{Page: 1, Limit: 10, Offset: 0}},
		{"?page=3&limit=20", Pagination{Page: 3, Limit: 20, Offset: 40}},
		{"?page=0&limit=-5", Pagination{Page: 1, Limit: 10, Offset: 0}},
		{"?page=abc&limit=500", Pagination{Page: 1, Limit: 100, Offset: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, parseQuery(t, tt.query))
		})
	}
}

func TestPaginationMeta(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(Pagination{Page: 2, Limit: 10, Offset: 10}.Meta(25))
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(raw, &meta))

	assert.Equal(t, float64(3), meta["total_pages"])
	assert.Equal(t, float64(25), meta["total"])
	assert.Equal(t, true, meta["has_next_page"])
	assert.Equal(t, true, meta["has_prev_page"])
}
