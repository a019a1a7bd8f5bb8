package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/heic2pdf/backend/internal/api/v1/dto"
	"github.com/heic2pdf/backend/internal/middleware"
	"github.com/heic2pdf/backend/internal/service"

	"github.com/rs/zerolog"
)

// multipart framing allowance on top of the file itself
const formOverheadBytes = 1 << 20

// ConversionHandler accepts HEIC uploads and lists past conversions.
type ConversionHandler struct {
	conversions    service.ConversionService
	maxUploadBytes int64
	logger         zerolog.Logger
}

func NewConversionHandler(conversions service.ConversionService, maxUploadBytes int64, logger zerolog.Logger) *ConversionHandler {
	return &ConversionHandler{conversions: conversions, maxUploadBytes: maxUploadBytes, logger: logger}
}

func (h *ConversionHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/conversions", authMw(http.HandlerFunc(h.handleConversions)))
}

func (h *ConversionHandler) handleConversions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createConversion(w, r)
	case http.MethodGet:
		h.listConversions(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// createConversion godoc
// @Summary Convert a HEIC image to PDF
// @Description Uploads a .heic/.heif file, converts it and returns a time-limited download link. Free users are limited per UTC day.
// @Tags conversions
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "HEIC or HEIF image"
// @Success 200 {object} dto.ConversionResponseDTO
// @Failure 400 {string} string "invalid upload"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 413 {string} string "file too large"
// @Failure 429 {object} dto.LimitReachedDTO
// @Failure 502 {string} string "conversion failed"
// @Router /conversions [post]
func (h *ConversionHandler) createConversion(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+formOverheadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, service.ErrFileTooLarge.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	res, err := h.conversions.Convert(r.Context(), userID, service.Upload{
		Filename: hdr.Filename,
		Size:     hdr.Size,
		Body:     file,
	})
	var limitErr *service.LimitError
	switch {
	case errors.As(err, &limitErr):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(dto.LimitReachedDTO{
			Error:      "Daily limit reached",
			Reason:     limitErr.Decision.Reason,
			DailyCount: limitErr.Decision.DailyCount,
			DailyLimit: limitErr.DailyLimit,
			ResetAt:    limitErr.ResetAt,
		})
		return
	case errors.Is(err, service.ErrInvalidFileType), errors.Is(err, service.ErrEmptyFile):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, service.ErrFileTooLarge):
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	case errors.Is(err, service.ErrConversion):
		http.Error(w, "Conversion failed. Please try again.", http.StatusBadGateway)
		return
	case err != nil:
		h.logger.Error().Err(err).Str("user_id", userID).Msg("conversion request failed")
		http.Error(w, "Failed to convert file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(dto.ConversionResponseDTO{
		ConversionID: res.ID,
		FileName:     res.FileName,
		DownloadURL:  res.DownloadURL,
		ExpiresAt:    res.ExpiresAt,
		IsPro:        res.IsPro,
	}); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode conversion response")
	}
}

// listConversions godoc
// @Summary List recent conversions
// @Tags conversions
// @Produce json
// @Success 200 {array} dto.ConversionHistoryDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 500 {string} string "Failed to list conversions"
// @Router /conversions [get]
func (h *ConversionHandler) listConversions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	recs, err := h.conversions.ListRecent(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to list conversions", http.StatusInternalServerError)
		return
	}
	resp := make([]dto.ConversionHistoryDTO, 0, len(recs))
	for _, c := range recs {
		item := dto.ConversionHistoryDTO{
			ConversionID:   c.ID,
			SourceFileName: c.OriginalName,
			Status:         string(c.Status),
			SizeBytes:      c.FileSizeBytes,
			CreatedAt:      c.CreatedAt,
		}
		if c.ErrorMessage != nil {
			item.Error = *c.ErrorMessage
		}
		resp = append(resp, item)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
