package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/heic2pdf/backend/internal/model"
	"github.com/heic2pdf/backend/internal/repository"
	"github.com/heic2pdf/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidFileType = errors.New("invalid file type: only .heic and .heif files are supported")
	ErrFileTooLarge    = errors.New("file too large")
	ErrEmptyFile       = errors.New("file is empty")
	ErrConversion      = errors.New("conversion failed")
)

// LimitError is returned when a free user has used up today's conversions.
type LimitError struct {
	Decision   Decision
	DailyLimit int
	ResetAt    time.Time
}

func (e *LimitError) Error() string {
	return e.Decision.Reason
}

// Converter turns a HEIC/HEIF image into a PDF.
type Converter interface {
	ConvertHEICToPDF(ctx context.Context, filename string, r io.Reader) ([]byte, error)
}

// Upload is a file received from a client.
type Upload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// ConversionResult is what a successful conversion returns to the client.
type ConversionResult struct {
	ID          string    `json:"id"`
	FileName    string    `json:"fileName"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
	IsPro       bool      `json:"isPro"`
}

type ConversionService interface {
	Convert(ctx context.Context, userID string, upload Upload) (*ConversionResult, error)
	ListRecent(ctx context.Context, userID string) ([]model.ConversionRecord, error)
}

// ConversionConfig holds the conversion limits and link lifetime.
type ConversionConfig struct {
	MaxUploadBytes int64
	DownloadURLTTL time.Duration
	HistoryLimit   int
}

type conversionService struct {
	resolver  EntitlementResolver
	ledger    UsageLedger
	repo      repository.ConversionRepository
	converter Converter
	store     storage.ObjectStore
	cfg       ConversionConfig
	opts      Options
	logger    zerolog.Logger
}

func NewConversionService(
	resolver EntitlementResolver,
	ledger UsageLedger,
	repo repository.ConversionRepository,
	converter Converter,
	store storage.ObjectStore,
	cfg ConversionConfig,
	logger zerolog.Logger,
	opts Options,
) ConversionService {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.DownloadURLTTL <= 0 {
		cfg.DownloadURLTTL = 3 * time.Hour
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}
	return &conversionService{
		resolver:  resolver,
		ledger:    ledger,
		repo:      repo,
		converter: converter,
		store:     store,
		cfg:       cfg,
		opts:      opts.withDefaults(),
		logger:    logger.With().Str("service", "ConversionService").Logger(),
	}
}

// ValidateUpload checks the extension and size of an upload.
func ValidateUpload(filename string, size, maxBytes int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".heic" && ext != ".heif" {
		return ErrInvalidFileType
	}
	if size <= 0 {
		return ErrEmptyFile
	}
	if size > maxBytes {
		return fmt.Errorf("%w: maximum size is %dMB", ErrFileTooLarge, maxBytes>>20)
	}
	return nil
}

func (s *conversionService) Convert(ctx context.Context, userID string, upload Upload) (*ConversionResult, error) {
	if err := ValidateUpload(upload.Filename, upload.Size, s.cfg.MaxUploadBytes); err != nil {
		return nil, err
	}

	decision := s.resolver.CanConvert(ctx, userID)
	if !decision.CanConvert {
		return nil, &LimitError{
			Decision:   decision,
			DailyLimit: s.ledger.DailyLimit(),
			ResetAt:    model.NextUTCDay(s.opts.Now()),
		}
	}

	now := s.opts.Now().UTC()
	rec := &model.ConversionRecord{
		ID:            uuid.NewString(),
		UserID:        userID,
		OriginalName:  upload.Filename,
		FileSizeBytes: upload.Size,
		Status:        model.ConversionPending,
		CreatedAt:     now,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create conversion history row")
		return nil, err
	}

	pdfName := strings.TrimSuffix(upload.Filename, filepath.Ext(upload.Filename)) + ".pdf"
	key := fmt.Sprintf("conversions/%s/%s.pdf", userID, rec.ID)

	url, err := s.convertAndStore(ctx, upload, key, pdfName)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("conversion_id", rec.ID).Msg("Conversion failed")
		if markErr := s.repo.MarkFailed(ctx, rec.ID, err.Error(), s.opts.Now().UTC()); markErr != nil {
			s.logger.Error().Err(markErr).Str("conversion_id", rec.ID).Msg("Failed to mark conversion as failed")
		}
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}

	if err := s.repo.MarkCompleted(ctx, rec.ID, key, s.opts.Now().UTC()); err != nil {
		s.logger.Error().Err(err).Str("conversion_id", rec.ID).Msg("Failed to mark conversion as completed")
	}
	s.ledger.RecordConversion(ctx, userID)

	return &ConversionResult{
		ID:          rec.ID,
		FileName:    pdfName,
		DownloadURL: url,
		ExpiresAt:   now.Add(s.cfg.DownloadURLTTL),
		IsPro:       decision.IsPro,
	}, nil
}

func (s *conversionService) convertAndStore(ctx context.Context, upload Upload, key, pdfName string) (string, error) {
	pdf, err := s.converter.ConvertHEICToPDF(ctx, upload.Filename, upload.Body)
	if err != nil {
		return "", err
	}
	if err := s.store.Put(ctx, key, "application/pdf", pdf); err != nil {
		return "", err
	}
	return s.store.PresignGet(ctx, key, pdfName, s.cfg.DownloadURLTTL)
}

func (s *conversionService) ListRecent(ctx context.Context, userID string) ([]model.ConversionRecord, error) {
	recs, err := s.repo.ListRecent(ctx, userID, s.cfg.HistoryLimit)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list conversions")
		return nil, err
	}
	return recs, nil
}
