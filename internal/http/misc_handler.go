package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gildedwren/storefront/internal/marketing/service"
)

type MarketingAPI interface {
	Subscribe(ctx context.Context, email string) error
	SubmitContact(ctx context.Context, name, email, message string) error
}

type MiscHandler struct {
	marketing MarketingAPI
	uploadDir string
	timeout   time.Duration
}

func NewMiscHandler(marketing MarketingAPI, uploadDir string, timeout time.Duration) *MiscHandler {
	return &MiscHandler{marketing: marketing, uploadDir: uploadDir, timeout: timeout}
}

type NewsletterRequestDTO struct {
	Email string `json:"email"`
}

type ContactRequestDTO struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

func (h *MiscHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *MiscHandler) Newsletter(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req NewsletterRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.marketing.Subscribe(ctx, req.Email); err != nil {
		h.respondMarketingError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *MiscHandler) Contact(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ContactRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.marketing.SubmitContact(ctx, req.Name, req.Email, req.Message); err != nil {
		h.respondMarketingError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *MiscHandler) respondMarketingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmailRequired),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrMissingFields),
		errors.Is(err, service.ErrMessageTooLong):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "could not save submission")
	}
}

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

const maxUploadBytes = 5 << 20 // 5MB

// Upload stores a product image and returns its serving path. Filenames are
// regenerated so client input never reaches the filesystem.
func (h *MiscHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "image file is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExts[ext] {
		respondError(w, http.StatusBadRequest, "invalid_file_type", "only jpg, jpeg, png, gif and webp are allowed")
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "could not store upload")
		return
	}

	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(h.uploadDir, name))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "could not store upload")
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "could not store upload")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"url":     fmt.Sprintf("/uploads/%s", name),
	})
}
