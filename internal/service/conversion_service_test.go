package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/heic2pdf/backend/internal/model"
	"github.com/heic2pdf/backend/internal/repository/memory"
	"github.com/heic2pdf/backend/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockConverter struct {
	mock.Mock
}

func (m *mockConverter) ConvertHEICToPDF(ctx context.Context, filename string, r io.Reader) ([]byte, error) {
	args := m.Called(ctx, filename, r)
	if b, ok := args.Get(0).([]byte); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	return m.Called(ctx, key, contentType, data).Error(0)
}

func (m *mockStore) PresignGet(ctx context.Context, key, downloadName string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, downloadName, ttl)
	return args.String(0), args.Error(1)
}

type conversionFixture struct {
	usage     *memory.UsageRepo
	subs      *memory.SubscriptionRepo
	history   *memory.ConversionRepo
	converter *mockConverter
	store     *mockStore
	ledger    service.UsageLedger
	svc       service.ConversionService
}

func newConversionFixture() *conversionFixture {
	c := newClock(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	f := &conversionFixture{
		usage:     memory.NewUsageRepo(),
		subs:      memory.NewSubscriptionRepo(),
		history:   memory.NewConversionRepo(),
		converter: &mockConverter{},
		store:     &mockStore{},
	}
	opts := service.Options{Now: c.Now, DailyFreeLimit: 10}
	f.ledger = service.NewUsageLedger(f.usage, zerolog.Nop(), opts)
	resolver := service.NewEntitlementResolver(f.subs, f.ledger, staticCatalog{}, zerolog.Nop(), opts)
	f.svc = service.NewConversionService(resolver, f.ledger, f.history, f.converter, f.store,
		service.ConversionConfig{MaxUploadBytes: 1 << 20, DownloadURLTTL: 3 * time.Hour}, zerolog.Nop(), opts)
	return f
}

func upload(name string, body string) service.Upload {
	return service.Upload{Filename: name, Size: int64(len(body)), Body: strings.NewReader(body)}
}

func TestConvertSuccessRecordsUsage(t *testing.T) {
	f := newConversionFixture()
	f.converter.On("ConvertHEICToPDF", mock.Anything, "IMG_0001.HEIC", mock.Anything).Return([]byte("%PDF"), nil).Once()
	f.store.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "conversions/u1/")
	}), "application/pdf", []byte("%PDF")).Return(nil).Once()
	f.store.On("PresignGet", mock.Anything, mock.Anything, "IMG_0001.pdf", 3*time.Hour).Return("https://example.test/dl", nil).Once()

	res, err := f.svc.Convert(context.Background(), "u1", upload("IMG_0001.HEIC", "heic"))
	require.NoError(t, err)
	assert.Equal(t, "IMG_0001.pdf", res.FileName)
	assert.Equal(t, "https://example.test/dl", res.DownloadURL)
	assert.False(t, res.IsPro)
	assert.Equal(t, time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC), res.ExpiresAt)

	assert.Equal(t, 1, f.ledger.CheckAndMaybeReset(context.Background(), "u1").DailyCount)

	recs, err := f.svc.ListRecent(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.ConversionCompleted, recs[0].Status)
	require.NotNil(t, recs[0].StorageKey)

	f.converter.AssertExpectations(t)
	f.store.AssertExpectations(t)
}

func TestConvertRejectsAtLimit(t *testing.T) {
	f := newConversionFixture()
	for range 10 {
		f.ledger.RecordConversion(context.Background(), "u1")
	}

	_, err := f.svc.Convert(context.Background(), "u1", upload("a.heic", "heic"))
	var limitErr *service.LimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 10, limitErr.Decision.DailyCount)
	assert.Equal(t, 10, limitErr.DailyLimit)
	assert.Equal(t, time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC), limitErr.ResetAt)
	assert.Equal(t, service.ReasonLimitReached, limitErr.Error())

	f.converter.AssertNotCalled(t, "ConvertHEICToPDF", mock.Anything, mock.Anything, mock.Anything)
}

func TestConvertProIgnoresLimit(t *testing.T) {
	f := newConversionFixture()
	f.subs.Put(&model.SubscriptionRecord{UserID: "u1", Provider: model.ProviderCreem, Status: model.StatusActive})
	for range 10 {
		f.ledger.RecordConversion(context.Background(), "u1")
	}
	f.converter.On("ConvertHEICToPDF", mock.Anything, mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
	f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.store.On("PresignGet", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("https://example.test/dl", nil)

	res, err := f.svc.Convert(context.Background(), "u1", upload("a.heif", "heic"))
	require.NoError(t, err)
	assert.True(t, res.IsPro)
}

func TestConvertValidatesUpload(t *testing.T) {
	f := newConversionFixture()

	_, err := f.svc.Convert(context.Background(), "u1", upload("a.jpg", "jpeg"))
	assert.ErrorIs(t, err, service.ErrInvalidFileType)

	_, err = f.svc.Convert(context.Background(), "u1", upload("a.heic", ""))
	assert.ErrorIs(t, err, service.ErrEmptyFile)

	big := service.Upload{Filename: "a.heic", Size: 2 << 20, Body: strings.NewReader("x")}
	_, err = f.svc.Convert(context.Background(), "u1", big)
	assert.ErrorIs(t, err, service.ErrFileTooLarge)

	f.converter.AssertNotCalled(t, "ConvertHEICToPDF", mock.Anything, mock.Anything, mock.Anything)
}

func TestConvertFailureMarksHistoryFailed(t *testing.T) {
	f := newConversionFixture()
	f.converter.On("ConvertHEICToPDF", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("upstream 500"))

	_, err := f.svc.Convert(context.Background(), "u1", upload("a.heic", "heic"))
	require.ErrorIs(t, err, service.ErrConversion)

	recs, err := f.svc.ListRecent(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.ConversionFailed, recs[0].Status)
	require.NotNil(t, recs[0].ErrorMessage)
	assert.Contains(t, *recs[0].ErrorMessage, "upstream 500")

	assert.Equal(t, 0, f.ledger.CheckAndMaybeReset(context.Background(), "u1").DailyCount)
}

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name string
		file string
		size int64
		want error
	}{
		{"heic", "a.heic", 10, nil},
		{"upper case heif", "B.HEIF", 10, nil},
		{"png", "a.png", 10, service.ErrInvalidFileType},
		{"no extension", "heic", 10, service.ErrInvalidFileType},
		{"empty", "a.heic", 0, service.ErrEmptyFile},
		{"exactly max", "a.heic", 100, nil},
		{"over max", "a.heic", 101, service.ErrFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.ValidateUpload(tt.file, tt.size, 100)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
