package printing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thirdhand/marketplace/internal/infrastructure/config"
	"go.uber.org/zap"
)

func TestNewChromedpConfig(t *testing.T) {
	cfg := NewChromedpConfig(config.PrintingConfig{
		ChromeExecPath:  "/usr/bin/chromium",
		ChromeRemoteURL: "ws://chrome:9222",
		NoSandbox:       true,
		RenderTimeout:   15 * time.Second,
	}, zap.NewNop())

	assert.Equal(t, "/usr/bin/chromium", cfg.ExecPath)
	assert.Equal(t, "ws://chrome:9222", cfg.RemoteURL)
	assert.True(t, cfg.NoSandbox)
	assert.Equal(t, 15*time.Second, cfg.DefaultTimeout)
}

func TestNewChromedpRenderer_Defaults(t *testing.T) {
	r, err := NewChromedpRenderer(nil)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, defaultChromeTimeout, r.config.DefaultTimeout)
	assert.Equal(t, defaultScale, r.config.Scale)
	assert.True(t, r.config.Headless)
	assert.True(t, r.config.DisableGPU)
}

func TestBuildPrintParams_A4Portrait(t *testing.T) {
	r := &ChromedpRenderer{config: &ChromedpConfig{Scale: 1.0}}

	params := r.buildPrintParams(&RenderRequest{
		HTML:      "<html>test</html>",
		PaperSize: PaperSizeA4,
		Margins:   DefaultMargins(),
	})

	// A4 is 210mm x 297mm
	assert.InDelta(t, mmToInches(210), params.paperWidth, 0.01)
	assert.InDelta(t, mmToInches(297), params.paperHeight, 0.01)
	assert.False(t, params.landscape)
	assert.True(t, params.printBackground)
	assert.False(t, params.displayHeaderFooter)
}

func TestBuildPrintParams_LandscapeLetter(t *testing.T) {
	r := &ChromedpRenderer{config: &ChromedpConfig{Scale: 1.0}}

	params := r.buildPrintParams(&RenderRequest{
		HTML:      "<html>test</html>",
		PaperSize: PaperSizeLetter,
		Landscape: true,
	})

	assert.True(t, params.landscape)
	assert.InDelta(t, mmToInches(216), params.paperWidth, 0.01)
}

func TestBuildPrintParams_WithMargins(t *testing.T) {
	r := &ChromedpRenderer{config: &ChromedpConfig{Scale: 1.0}}

	params := r.buildPrintParams(&RenderRequest{
		HTML:      "<html>test</html>",
		PaperSize: PaperSizeA4,
		Margins:   Margins{Top: 10, Right: 15, Bottom: 20, Left: 25},
	})

	assert.InDelta(t, mmToInches(10), params.marginTop, 0.001)
	assert.InDelta(t, mmToInches(15), params.marginRight, 0.001)
	assert.InDelta(t, mmToInches(20), params.marginBottom, 0.001)
	assert.InDelta(t, mmToInches(25), params.marginLeft, 0.001)
}

func TestBuildPrintParams_WithFooter(t *testing.T) {
	r := &ChromedpRenderer{config: &ChromedpConfig{Scale: 1.0}}

	params := r.buildPrintParams(&RenderRequest{
		HTML:       "<html>test</html>",
		PaperSize:  PaperSizeA4,
		FooterHTML: "<div>Footer</div>",
	})

	assert.True(t, params.displayHeaderFooter)
	assert.Equal(t, "<span></span>", params.headerTemplate)
	assert.Equal(t, "<div>Footer</div>", params.footerTemplate)
	assert.GreaterOrEqual(t, params.marginBottom, mmToInches(10))
}

func TestBuildCompleteHTML(t *testing.T) {
	r := &ChromedpRenderer{config: &ChromedpConfig{}}

	t.Run("full documents are kept", func(t *testing.T) {
		for _, doc := range []string{
			"<!DOCTYPE html><html><head></head><body>test</body></html>",
			"<html><head></head><body>test</body></html>",
		} {
			assert.Equal(t, doc, r.buildCompleteHTML(&RenderRequest{HTML: doc}))
		}
	})

	t.Run("fragments are wrapped", func(t *testing.T) {
		result := r.buildCompleteHTML(&RenderRequest{
			HTML:  "<div>Hello World</div>",
			Title: "Sun & Sea",
		})

		assert.Contains(t, result, "<!DOCTYPE html>")
		assert.Contains(t, result, `<meta charset="UTF-8">`)
		assert.Contains(t, result, "<title>Sun &amp; Sea</title>")
		assert.Contains(t, result, "<body><div>Hello World</div></body></html>")
	})
}

func TestChromedpRenderer_Render_Validation(t *testing.T) {
	r := &ChromedpRenderer{config: &ChromedpConfig{}, logger: zap.NewNop()}
	ctx := context.Background()

	tests := []struct {
		name string
		req  *RenderRequest
		code string
	}{
		{"nil request", nil, ErrCodeInvalidHTML},
		{"whitespace only HTML", &RenderRequest{HTML: "  \n\t ", PaperSize: PaperSizeA4}, ErrCodeInvalidHTML},
		{"invalid paper size", &RenderRequest{HTML: "<p>x</p>", PaperSize: "A0"}, ErrCodeInvalidPaperSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Render(ctx, tt.req)
			var renderErr *RenderError
			require.ErrorAs(t, err, &renderErr)
			assert.Equal(t, tt.code, renderErr.Code)
		})
	}
}

func TestMmToInches(t *testing.T) {
	tests := []struct {
		mm       float64
		expected float64
	}{
		{0, 0},
		{25.4, 1.0},
		{210, 8.2677},
		{297, 11.6929},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.expected, mmToInches(tt.mm), 0.001)
	}
}

func TestChromedpRenderer_Close(t *testing.T) {
	r := &ChromedpRenderer{config: &ChromedpConfig{}}
	assert.NoError(t, r.Close())
}
