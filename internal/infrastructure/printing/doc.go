// Package printing renders certificate of authenticity PDFs.
//
// HTML is produced with html/template (TemplateEngine) and printed to PDF by
// a headless Chrome driven over the DevTools protocol (ChromedpRenderer):
//
//	renderer, err := NewChromedpRenderer(NewChromedpConfig(cfg.Printing, logger))
//	if err != nil {
//	    return err
//	}
//	defer renderer.Close()
//
//	certificates := NewCertificateRenderer(NewTemplateEngine(), renderer, logger)
//	pdf, err := certificates.RenderCertificate(ctx, data)
package printing
