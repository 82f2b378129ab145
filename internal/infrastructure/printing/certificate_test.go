package printing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	provenanceapp "github.com/thirdhand/marketplace/internal/application/provenance"
	"go.uber.org/zap"
)

type stubPDFRenderer struct {
	last *RenderRequest
	err  error
}

func (s *stubPDFRenderer) Render(_ context.Context, req *RenderRequest) (*RenderResult, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &RenderResult{PDFData: []byte("%PDF-1.7"), PageCount: 1}, nil
}

func (s *stubPDFRenderer) Close() error { return nil }

func certificateData() *provenanceapp.CertificateData {
	year := 2021
	artistID := uuid.New()
	buyerID := uuid.New()
	issued := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	return &provenanceapp.CertificateData{
		ArtworkID:   uuid.New(),
		Title:       "Quiet Shore",
		Description: "Watercolour on paper",
		Medium:      "watercolour",
		Year:        &year,
		Dimensions:  "30 × 40 cm",
		ImageURL:    "https://cdn.example.com/a.jpg",
		Price:       decimal.NewFromInt(120),
		Sold:        true,
		Artist:      provenanceapp.UserSummary{ID: artistID, Username: "painter"},
		Owner:       provenanceapp.UserSummary{ID: buyerID, Username: "collector"},
		Records: []provenanceapp.RecordResponse{
			{
				TransactionType: "created",
				From:            provenanceapp.UserSummary{ID: artistID, Username: "painter"},
				To:              provenanceapp.UserSummary{ID: artistID, Username: "painter"},
				TransactionHash: "a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90",
				Timestamp:       issued.Add(-48 * time.Hour),
			},
			{
				TransactionType: "sold",
				From:            provenanceapp.UserSummary{ID: artistID, Username: "painter"},
				To:              provenanceapp.UserSummary{ID: buyerID, Username: "collector"},
				TransactionHash: "ffb2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e0000",
				Timestamp:       issued.Add(-time.Hour),
			},
		},
		ChainValid: true,
		IssuedAt:   issued,
	}
}

func TestCertificateRenderer_RenderHTML(t *testing.T) {
	r := NewCertificateRenderer(NewTemplateEngine(), &stubPDFRenderer{}, zap.NewNop())

	html, err := r.RenderHTML(context.Background(), certificateData())
	require.NoError(t, err)

	for _, want := range []string{
		"CERTIFICATE OF AUTHENTICITY",
		"Quiet Shore",
		"painter",
		"collector",
		"Watercolour",
		"2021",
		"Sale price",
		"€120.00",
		"a1b2c3d4…8f90",
		"Traceability chain verified.",
		"Issued 2024-06-01 09:00 UTC",
		`src="https://cdn.example.com/a.jpg"`,
	} {
		assert.Contains(t, html, want)
	}
}

func TestCertificateRenderer_RenderCertificate(t *testing.T) {
	t.Run("prints A4 with page footer", func(t *testing.T) {
		pdf := &stubPDFRenderer{}
		r := NewCertificateRenderer(NewTemplateEngine(), pdf, zap.NewNop())

		out, err := r.RenderCertificate(context.Background(), certificateData())
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-1.7"), out)

		require.NotNil(t, pdf.last)
		assert.Equal(t, PaperSizeA4, pdf.last.PaperSize)
		assert.Equal(t, "Certificate of Authenticity - Quiet Shore", pdf.last.Title)
		assert.Contains(t, pdf.last.FooterHTML, "pageNumber")
	})

	t.Run("broken chain is flagged", func(t *testing.T) {
		r := NewCertificateRenderer(NewTemplateEngine(), &stubPDFRenderer{}, zap.NewNop())
		data := certificateData()
		data.ChainValid = false

		html, err := r.RenderHTML(context.Background(), data)
		require.NoError(t, err)
		assert.Contains(t, html, "could not be verified")
	})

	t.Run("renderer error is returned", func(t *testing.T) {
		r := NewCertificateRenderer(NewTemplateEngine(), &stubPDFRenderer{err: assert.AnError}, zap.NewNop())

		_, err := r.RenderCertificate(context.Background(), certificateData())
		assert.ErrorIs(t, err, assert.AnError)
	})
}
