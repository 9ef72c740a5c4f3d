package seeding

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dashboard-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func collect[T any](seq *Sequence[T]) []T {
	var out []T
	for {
		item, ok := seq.Next()
		if !ok {
			return out
		}
		out = append(out, item)
	}
}

func TestLineSource(t *testing.T) {
	dir := t.TempDir()

	t.Run("drops blank lines and carriage returns", func(t *testing.T) {
		path := writeFile(t, dir, "ok.sql", "\r\nINSERT INTO t VALUES\r\n(1);\r\n\r\n  \ninsert INTO t VALUES (2);")
		seq, err := NewLineSource(path).Load(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 3, seq.Len())
		assert.Equal(t, []string{"INSERT INTO t VALUES", "(1);", "insert INTO t VALUES (2);"}, collect(seq))
	})

	t.Run("accepts a comment header", func(t *testing.T) {
		path := writeFile(t, dir, "header.sql", "-- generated\n\n  -- catalog\nINSERT INTO t VALUES (1);\n")
		seq, err := NewLineSource(path).Load(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []string{"-- generated", "  -- catalog", "INSERT INTO t VALUES (1);"}, collect(seq))
	})

	t.Run("comments alone are not a script", func(t *testing.T) {
		path := writeFile(t, dir, "comments.sql", "-- generated\n-- empty export\n")
		_, err := NewLineSource(path).Load(context.Background())

		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Contains(t, err.Error(), "no insert statement")
	})

	t.Run("first statement must be an insert", func(t *testing.T) {
		path := writeFile(t, dir, "bad.sql", "\n\nDELETE FROM t;\nINSERT INTO t VALUES (1);\n")
		_, err := NewLineSource(path).Load(context.Background())

		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, []int{3}, parseErr.Lines)
		assert.Contains(t, err.Error(), "line 3")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewLineSource(filepath.Join(dir, "nope.sql")).Load(context.Background())
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestCSVSource(t *testing.T) {
	dir := t.TempDir()

	t.Run("skips header and decodes rows", func(t *testing.T) {
		path := writeFile(t, dir, "items.csv",
			"id,orderid,productid,unitprice,units,productname\n"+
				"1,1,10,9.99,2,Mug\n"+
				"2, 1, 11, 0.50, 1, \"Cup, large\"\n")
		seq, err := NewCSVSource(path, OrderItemsHeader, DecodeOrderItem).Load(context.Background())

		require.NoError(t, err)
		items := collect(seq)
		require.Len(t, items, 2)
		assert.Equal(t, models.OrderItem{ID: 1, OrderID: 1, ProductID: 10, UnitPrice: 9.99, Units: 2, ProductName: "Mug"}, items[0])
		assert.Equal(t, "Cup, large", items[1].ProductName)
		assert.InDelta(t, 0.5, items[1].UnitPrice, 1e-9)
	})

	t.Run("headerless file", func(t *testing.T) {
		path := writeFile(t, dir, "plain.csv", "1,1,10,9.99,2,Mug\n")
		seq, err := NewCSVSource(path, OrderItemsHeader, DecodeOrderItem).Load(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, seq.Len())
	})

	t.Run("reports every bad line and returns nothing", func(t *testing.T) {
		path := writeFile(t, dir, "bad.csv",
			"Id,OrderId,ProductId,UnitPrice,Units,ProductName\n"+
				"1,1,10,9.99,2,Mug\n"+
				"2,1,x,1.00,1,Cup\n"+
				"3,1,11,1.00,0,Plate\n"+
				"4,1,11,1.00\n")
		seq, err := NewCSVSource(path, OrderItemsHeader, DecodeOrderItem).Load(context.Background())

		assert.Nil(t, seq)
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, []int{3, 4, 5}, parseErr.Lines)
		assert.Contains(t, err.Error(), "ProductId")
	})

	t.Run("rejects prices the target column cannot hold", func(t *testing.T) {
		path := writeFile(t, dir, "prices.csv",
			"1,1,1,9.50,1,Mug\n"+
				"2,1,1,+Inf,1,Cup\n"+
				"3,1,1,100000000000000000,1,Plate\n")
		seq, err := NewCSVSource(path, OrderItemsHeader, DecodeOrderItem).Load(context.Background())

		assert.Nil(t, seq)
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, []int{2, 3}, parseErr.Lines)
	})
}

func TestJSONSource(t *testing.T) {
	dir := t.TempDir()

	t.Run("decodes array", func(t *testing.T) {
		path := writeFile(t, dir, "tags.json", `[
  {"productId": 1, "color": ["red", "blue"], "agram": "a"},
  {"productId": 2}
]`)
		seq, err := NewJSONSource[models.CatalogTags](path).Load(context.Background())

		require.NoError(t, err)
		tags := collect(seq)
		require.Len(t, tags, 2)
		assert.Equal(t, []string{"red", "blue"}, tags[0].Color)
		assert.Equal(t, 2, tags[1].ProductID)
	})

	t.Run("invalid elements carry their line", func(t *testing.T) {
		path := writeFile(t, dir, "bad.json", `[
  {"productId": 1},
  {"productId": 0},
  {"productId": "x"}
]`)
		_, err := NewJSONSource[models.CatalogTags](path).Load(context.Background())

		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, []int{3, 4}, parseErr.Lines)
	})

	t.Run("syntax error", func(t *testing.T) {
		path := writeFile(t, dir, "broken.json", "[\n  {\"productId\": 1,,}\n]")
		_, err := NewJSONSource[models.CatalogTags](path).Load(context.Background())

		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, []int{2}, parseErr.Lines)
	})

	t.Run("trailing content after the array", func(t *testing.T) {
		path := writeFile(t, dir, "trailing.json", "[{\"productId\": 1}]\n{\"productId\": \"garbage\"")
		seq, err := NewJSONSource[models.CatalogTags](path).Load(context.Background())

		assert.Nil(t, seq)
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, []int{2}, parseErr.Lines)
	})

	t.Run("trailing whitespace is fine", func(t *testing.T) {
		path := writeFile(t, dir, "spaced.json", "[{\"productId\": 1}]\n\n")
		seq, err := NewJSONSource[models.CatalogTags](path).Load(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, seq.Len())
	})

	t.Run("not an array", func(t *testing.T) {
		path := writeFile(t, dir, "object.json", `{"productId": 1}`)
		_, err := NewJSONSource[models.CatalogTags](path).Load(context.Background())

		var parseErr *ParseError
		assert.True(t, errors.As(err, &parseErr))
	})
}
