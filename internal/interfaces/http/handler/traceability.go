package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	provenanceapp "github.com/thirdhand/marketplace/internal/application/provenance"
)

// TraceabilityHandler exposes the ownership chain of artworks
type TraceabilityHandler struct {
	BaseHandler
	provenanceService *provenanceapp.Service
}

// NewTraceabilityHandler creates a new TraceabilityHandler
func NewTraceabilityHandler(provenanceService *provenanceapp.Service) *TraceabilityHandler {
	return &TraceabilityHandler{provenanceService: provenanceService}
}

// History godoc
// @Summary      Ownership history of an artwork
// @Tags         traceability
// @Produce      json
// @Param        artworkId path string true "Artwork ID"
// @Success      200 {object} APIResponse[provenanceapp.HistoryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /traceability/{artworkId} [get]
func (h *TraceabilityHandler) History(c *gin.Context) {
	artworkID, ok := h.parseUUIDParam(c, "artworkId")
	if !ok {
		return
	}

	history, err := h.provenanceService.History(c.Request.Context(), viewer(c), artworkID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, history)
}

// Verify godoc
// @Summary      Verify the hash chain of an artwork
// @Tags         traceability
// @Produce      json
// @Param        artworkId path string true "Artwork ID"
// @Success      200 {object} APIResponse[provenanceapp.VerifyResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /traceability/{artworkId}/verify [get]
func (h *TraceabilityHandler) Verify(c *gin.Context) {
	artworkID, ok := h.parseUUIDParam(c, "artworkId")
	if !ok {
		return
	}

	result, err := h.provenanceService.Verify(c.Request.Context(), viewer(c), artworkID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Lookup godoc
// @Summary      Find a record by transaction hash
// @Tags         traceability
// @Produce      json
// @Param        hash path string true "SHA-256 transaction hash"
// @Success      200 {object} APIResponse[provenanceapp.RecordResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /traceability/hash/{hash} [get]
func (h *TraceabilityHandler) Lookup(c *gin.Context) {
	record, err := h.provenanceService.Lookup(c.Request.Context(), viewer(c), c.Param("hash"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, record)
}

// Certificate godoc
// @Summary      Certificate of authenticity
// @Description  PDF certificate with the artwork details and its verified ownership chain
// @Tags         traceability
// @Produce      application/pdf
// @Param        artworkId path string true "Artwork ID"
// @Success      200 {file} binary "PDF file"
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /traceability/{artworkId}/certificate [get]
func (h *TraceabilityHandler) Certificate(c *gin.Context) {
	artworkID, ok := h.parseUUIDParam(c, "artworkId")
	if !ok {
		return
	}

	cert, err := h.provenanceService.Certificate(c.Request.Context(), viewer(c), artworkID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+cert.Filename+"\"")
	c.Data(http.StatusOK, "application/pdf", cert.PDF)
}
