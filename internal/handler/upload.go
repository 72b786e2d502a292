package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/storage"
)

// MaxUploadBytes caps one uploaded image.
const MaxUploadBytes = 5 << 20

// UploadHandler accepts images for posts, news and profile photos. The
// returned URL is what the client puts in imageUrl/photoURL.
type UploadHandler struct {
	images storage.Store
	logger *slog.Logger
}

// NewUploadHandler creates an UploadHandler saving to images.
func NewUploadHandler(images storage.Store, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{images: images, logger: logger}
}

type uploadResponse struct {
	URL string `json:"url"`
}

// HandleUpload stores the multipart field "file".
//
// HTTP: POST /api/uploads
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes+1<<10)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		writeError(w, apperror.ValidationFailed("file", "image must be a multipart upload of at most 5 MB"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperror.ValidationFailed("file", "file is required"))
		return
	}
	defer file.Close()

	if header.Size > MaxUploadBytes {
		writeError(w, apperror.ValidationFailed("file", "image must be at most 5 MB"))
		return
	}

	url, err := h.images.Save(r.Context(), header.Filename, file)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			writeError(w, apperror.ValidationFailed("file", "only jpg, png, gif and webp images are accepted"))
			return
		}
		h.logger.Error("failed to store upload",
			slog.String("userID", currentUserID(r)),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	h.logger.Info("image uploaded", slog.String("url", url), slog.String("userID", currentUserID(r)))
	writeJSON(w, http.StatusCreated, uploadResponse{URL: url})
}
