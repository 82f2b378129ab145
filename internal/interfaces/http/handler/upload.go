package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	catalogapp "github.com/thirdhand/marketplace/internal/application/catalog"
	"github.com/thirdhand/marketplace/internal/interfaces/http/dto"
)

// ImageFormField is the multipart field carrying the upload
const ImageFormField = "image"

// UploadHandler accepts artwork images
type UploadHandler struct {
	BaseHandler
	imageService *catalogapp.ImageService
}

// NewUploadHandler creates a new UploadHandler
func NewUploadHandler(imageService *catalogapp.ImageService) *UploadHandler {
	return &UploadHandler{imageService: imageService}
}

// UploadImage godoc
// @Summary      Upload an artwork image
// @Description  JPEG, PNG, GIF or WebP up to 10MB and at least 500x500 pixels
// @Tags         upload
// @Accept       multipart/form-data
// @Produce      json
// @Param        image formData file true "Image file"
// @Success      201 {object} APIResponse[catalogapp.UploadImageResult]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /upload/image [post]
func (h *UploadHandler) UploadImage(c *gin.Context) {
	// multipart framing gets a little room above the image limit
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, catalogapp.MaxImageSize+1<<20)

	file, err := c.FormFile(ImageFormField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File size too large. Maximum size is 10MB.")
			return
		}
		h.Error(c, http.StatusBadRequest, "NO_FILE", "No image uploaded")
		return
	}
	if file.Size > catalogapp.MaxImageSize {
		h.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File size too large. Maximum size is 10MB.")
		return
	}

	f, err := file.Open()
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Failed to read upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, catalogapp.MaxImageSize+1))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Failed to read upload")
		return
	}

	result, err := h.imageService.UploadImage(c.Request.Context(), viewer(c), catalogapp.UploadImageInput{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}
