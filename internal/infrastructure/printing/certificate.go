package printing

import (
	"context"
	_ "embed"

	provenanceapp "github.com/thirdhand/marketplace/internal/application/provenance"
	"go.uber.org/zap"
)

//go:embed templates/certificate.html
var certificateTemplate string

const certificateFooter = `<div style="font-size:8px;width:100%;text-align:center;color:#8a8378;">` +
	`Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`

var _ provenanceapp.CertificateRenderer = (*CertificateRenderer)(nil)

// CertificateRenderer produces certificate of authenticity PDFs
type CertificateRenderer struct {
	engine *TemplateEngine
	pdf    PDFRenderer
	logger *zap.Logger
}

// NewCertificateRenderer creates a certificate renderer on top of a PDF renderer
func NewCertificateRenderer(engine *TemplateEngine, pdf PDFRenderer, logger *zap.Logger) *CertificateRenderer {
	return &CertificateRenderer{
		engine: engine,
		pdf:    pdf,
		logger: logger,
	}
}

// RenderHTML renders the certificate document without printing it
func (r *CertificateRenderer) RenderHTML(ctx context.Context, data *provenanceapp.CertificateData) (string, error) {
	return r.engine.RenderString(ctx, "certificate", certificateTemplate, data)
}

// RenderCertificate renders the certificate as an A4 PDF
func (r *CertificateRenderer) RenderCertificate(ctx context.Context, data *provenanceapp.CertificateData) ([]byte, error) {
	doc, err := r.RenderHTML(ctx, data)
	if err != nil {
		return nil, err
	}

	result, err := r.pdf.Render(ctx, &RenderRequest{
		HTML:       doc,
		PaperSize:  PaperSizeA4,
		Margins:    DefaultMargins(),
		Title:      "Certificate of Authenticity - " + data.Title,
		FooterHTML: certificateFooter,
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("Certificate rendered",
		zap.String("artwork_id", data.ArtworkID.String()),
		zap.Int("pages", result.PageCount),
		zap.Duration("duration", result.RenderDuration))
	return result.PDFData, nil
}
