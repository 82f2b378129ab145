package printing

import (
	"context"
	"html/template"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateEngine_GetFuncMap(t *testing.T) {
	engine := NewTemplateEngine()
	funcMap := engine.GetFuncMap()

	for _, name := range []string{"formatMoney", "formatDate", "formatDateTime", "truncate", "title", "shortHash", "default", "safeURL"} {
		assert.Contains(t, funcMap, name)
	}

	// copies do not leak back into the engine
	funcMap["formatMoney"] = nil
	assert.NotNil(t, engine.GetFuncMap()["formatMoney"])
}

func TestTemplateEngine_WithFuncs(t *testing.T) {
	engine := NewTemplateEngine(WithFuncs(template.FuncMap{
		"shout": func(s string) string { return s + "!" },
	}))

	out, err := engine.RenderString(context.Background(), "t", `{{shout .}}`, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello!", out)
}

func TestTemplateEngine_RenderString(t *testing.T) {
	engine := NewTemplateEngine()
	ctx := context.Background()

	t.Run("renders and escapes", func(t *testing.T) {
		out, err := engine.RenderString(ctx, "t", `<p>{{.Name}} {{formatMoney .Price}}</p>`, map[string]any{
			"Name":  "<b>Sea</b>",
			"Price": decimal.NewFromFloat(1250.5),
		})
		require.NoError(t, err)
		assert.Equal(t, "<p>&lt;b&gt;Sea&lt;/b&gt; €1,250.50</p>", out)
	})

	t.Run("empty content", func(t *testing.T) {
		_, err := engine.RenderString(ctx, "t", "", nil)
		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, ErrCodeInvalidHTML, renderErr.Code)
	})

	t.Run("parse error", func(t *testing.T) {
		_, err := engine.RenderString(ctx, "t", "{{.Name", nil)
		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, ErrCodeInvalidHTML, renderErr.Code)
	})

	t.Run("execution error", func(t *testing.T) {
		_, err := engine.RenderString(ctx, "t", "{{.Missing.Field}}", struct{ Name string }{})
		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, ErrCodeRenderFailed, renderErr.Code)
	})
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		input    any
		expected string
	}{
		{decimal.NewFromFloat(1234.56), "€1,234.56"},
		{decimal.NewFromInt(1), "€1.00"},
		{int64(1000000), "€1,000,000.00"},
		{"99.9", "€99.90"},
		{decimal.NewFromFloat(-5), "-€5.00"},
		{nil, "€0.00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatMoney(tt.input))
	}
}

func TestFormatDate(t *testing.T) {
	ts := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, "5 March 2024", formatDate(ts))
	assert.Equal(t, "5 March 2024", formatDate(&ts))
	assert.Equal(t, "", formatDate(time.Time{}))
	assert.Equal(t, "2024-03-05 14:30 UTC", formatDateTime(ts))
	assert.Equal(t, "2024-03-05 14:30 UTC", formatDateTime("2024-03-05T14:30:00Z"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "abc…", truncate("abcdefgh", 4, "…"))
	assert.Equal(t, "..", truncate("abcdefgh", 2))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Oil On Canvas", titleCase("oil on canvas"))
	assert.Equal(t, "Sold", titleCase("sold"))
}

func TestShortHash(t *testing.T) {
	h := "a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90"
	assert.Equal(t, "a1b2c3d4…8f90", shortHash(h))
	assert.Equal(t, "abc", shortHash("abc"))
}

func TestShortUUID(t *testing.T) {
	id := uuid.MustParse("12345678-1234-1234-1234-123456789abc")
	assert.Equal(t, "12345678", shortUUID(id))
}

func TestDefaultFunc(t *testing.T) {
	assert.Equal(t, "fallback", defaultFunc("fallback", ""))
	assert.Equal(t, "fallback", defaultFunc("fallback", nil))
	assert.Equal(t, "value", defaultFunc("fallback", "value"))
}
