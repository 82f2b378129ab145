package handler

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	catalogapp "github.com/thirdhand/marketplace/internal/application/catalog"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"go.uber.org/zap/zaptest"
)

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memoryStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memoryStorage) DeleteObject(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memoryStorage) ObjectExists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *memoryStorage) PublicURL(key string) string {
	return "https://images.example.com/" + key
}

func (s *memoryStorage) KeyFromURL(url string) (string, bool) {
	return strings.CutPrefix(url, "https://images.example.com/")
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, field, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="artwork.png"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload/image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newUploadRouter(t *testing.T, role identity.Role) (http.Handler, *memoryStorage) {
	t.Helper()
	storage := &memoryStorage{objects: make(map[string][]byte)}
	h := NewUploadHandler(catalogapp.NewImageService(storage, zaptest.NewLogger(t)))
	router := newRouter(asUser(uuid.New(), role))
	router.POST("/upload/image", h.UploadImage)
	return router, storage
}

func TestUploadHandler_UploadImage(t *testing.T) {
	router, storage := newUploadRouter(t, identity.RoleArtist)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, ImageFormField, "image/png", pngBytes(t, 500, 600)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	result := decodeData[catalogapp.UploadImageResult](t, w)
	assert.Equal(t, 500, result.Width)
	assert.Equal(t, 600, result.Height)
	assert.Equal(t, "image/png", result.ContentType)
	assert.True(t, strings.HasPrefix(result.Key, "artworks/"))
	assert.Equal(t, "https://images.example.com/"+result.Key, result.URL)

	exists, err := storage.ObjectExists(context.Background(), result.Key)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUploadHandler_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		role       identity.Role
		field      string
		ctype      string
		size       int
		wantStatus int
		wantCode   string
	}{
		{"missing file", identity.RoleArtist, "file", "image/png", 500, http.StatusBadRequest, "NO_FILE"},
		{"too small", identity.RoleArtist, ImageFormField, "image/png", 100, http.StatusBadRequest, "IMAGE_TOO_SMALL"},
		{"svg", identity.RoleArtist, ImageFormField, "image/svg+xml", 500, http.StatusBadRequest, "INVALID_FILE_TYPE"},
		{"buyer", identity.RoleBuyer, ImageFormField, "image/png", 500, http.StatusForbidden, "ERR_FORBIDDEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, storage := newUploadRouter(t, tt.role)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, multipartRequest(t, tt.field, tt.ctype, pngBytes(t, tt.size, tt.size)))
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, w))
			assert.Empty(t, storage.objects)
		})
	}
}

func TestUploadHandler_NotMultipart(t *testing.T) {
	router, _ := newUploadRouter(t, identity.RoleArtist)
	w := serve(router, http.MethodPost, "/upload/image", `{"image":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NO_FILE", errorCode(t, w))
}
