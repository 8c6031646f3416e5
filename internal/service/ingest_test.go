package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/goportfolio/internal/auth"
	"github.com/bigkaa/goportfolio/internal/domain/model"
	"github.com/bigkaa/goportfolio/internal/imaging"
	"github.com/bigkaa/goportfolio/internal/repository"
	"github.com/bigkaa/goportfolio/internal/vision"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// encodeTestJPEG кодирует однотонное изображение заданного размера.
func encodeTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	return buf.Bytes()
}

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

// fakeDescriber — управляемая заглушка сервиса описаний.
type fakeDescriber struct {
	desc  *vision.Description
	usage *vision.Usage
	err   error
}

func (f *fakeDescriber) Describe(_ context.Context, _ []byte, _ string, _ model.AIStyle) (*vision.Description, *vision.Usage, error) {
	return f.desc, f.usage, f.err
}

func (f *fakeDescriber) Model() string { return "test-model" }

// fakeAssets переопределяет SlugExists, остальные методы не используются.
type fakeAssets struct {
	repository.AssetRepository
	taken map[string]bool
}

func (f *fakeAssets) SlugExists(_ context.Context, _ uuid.UUID, slug string) (bool, error) {
	return f.taken[slug], nil
}

func newTestIngest(describer vision.Describer, assets repository.AssetRepository) *IngestService {
	return &IngestService{
		assets:         assets,
		describer:      describer,
		uploadLimiter:  auth.NewRateLimiter(100, time.Hour),
		maxUploadSize:  20 << 20,
		storageTimeout: 5 * time.Second,
		logger:         testLogger(),
	}
}

func TestExtractMetadataJPEGWithoutEXIF(t *testing.T) {
	s := newTestIngest(nil, nil)
	data := encodeTestJPEG(t, 100, 80)
	info := &imaging.ImageInfo{Format: "jpeg", ContentType: "image/jpeg"}

	result := &IngestResult{}
	camera := s.extractMetadata(data, info, result)

	if !camera.Empty() {
		t.Error("ожидались пустые параметры съёмки")
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Code != WarnMetadataExtractionFailed {
		t.Errorf("ожидалось предупреждение %s, получено %+v", WarnMetadataExtractionFailed, result.Warnings)
	}
}

func TestExtractMetadataPNGSkipped(t *testing.T) {
	s := newTestIngest(nil, nil)
	data := encodeTestPNG(t, 100, 80)
	info := &imaging.ImageInfo{Format: "png", ContentType: "image/png"}

	result := &IngestResult{}
	camera := s.extractMetadata(data, info, result)

	if !camera.Empty() {
		t.Error("ожидались пустые параметры съёмки")
	}
	if len(result.Warnings) != 0 {
		t.Errorf("для PNG предупреждений быть не должно, получено %+v", result.Warnings)
	}
}

func TestDescribeSuccess(t *testing.T) {
	describer := &fakeDescriber{
		desc:  &vision.Description{Title: "Закат над морем", Category: "landscape"},
		usage: &vision.Usage{InputTokens: 1500, OutputTokens: 200},
	}
	s := newTestIngest(describer, nil)
	tenant := &model.Tenant{ID: uuid.New(), Handle: "anna", AIStyle: model.AIStyleBalanced}

	result := &IngestResult{}
	desc, usage := s.describe(context.Background(), tenant, nil, "image/jpeg", "sunset.jpg", time.Now(), result)

	if desc.Title != "Закат над морем" {
		t.Errorf("неожиданное название: %q", desc.Title)
	}
	if usage == nil || usage.InputTokens != 1500 {
		t.Errorf("неожиданный расход токенов: %+v", usage)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("предупреждений быть не должно: %+v", result.Warnings)
	}
}

func TestDescribeFailureFallsBack(t *testing.T) {
	describer := &fakeDescriber{err: errors.New("таймаут")}
	s := newTestIngest(describer, nil)
	tenant := &model.Tenant{ID: uuid.New(), Handle: "anna", AIStyle: model.AIStyleBalanced}

	result := &IngestResult{}
	desc, _ := s.describe(context.Background(), tenant, nil, "image/jpeg", "mountain_sunrise.jpg", time.Now(), result)

	if desc.Title != "Mountain Sunrise" {
		t.Errorf("ожидалось запасное название из имени файла, получено %q", desc.Title)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Code != WarnDescriptionGenerationFailed {
		t.Errorf("ожидалось предупреждение %s, получено %+v", WarnDescriptionGenerationFailed, result.Warnings)
	}
}

func TestDescribeNotConfiguredNoWarning(t *testing.T) {
	describer := &fakeDescriber{err: vision.ErrNotConfigured}
	s := newTestIngest(describer, nil)
	tenant := &model.Tenant{ID: uuid.New(), Handle: "anna", AIStyle: model.AIStyleBalanced}

	result := &IngestResult{}
	desc, _ := s.describe(context.Background(), tenant, nil, "image/jpeg", "photo.jpg", time.Now(), result)

	if desc == nil || desc.Title == "" {
		t.Error("ожидалось запасное описание")
	}
	// Отключённый сервис описаний — штатный режим, не сбой.
	if len(result.Warnings) != 0 {
		t.Errorf("предупреждений быть не должно: %+v", result.Warnings)
	}
}

func TestGenerateVariants(t *testing.T) {
	s := newTestIngest(nil, nil)
	data := encodeTestJPEG(t, 2400, 1600)

	result := &IngestResult{}
	renditions := s.generateVariants(data, result)

	if len(renditions) != len(model.VariantClasses) {
		t.Fatalf("ожидалось %d вариантов, получено %d", len(model.VariantClasses), len(renditions))
	}
	if len(result.Warnings) != 0 {
		t.Errorf("предупреждений быть не должно: %+v", result.Warnings)
	}
	for _, r := range renditions {
		max := r.Width
		if r.Height > max {
			max = r.Height
		}
		if max > model.VariantMaxSize(r.Class) && r.Class != model.VariantThumbnail {
			t.Errorf("вариант %s превышает лимит: %dx%d", r.Class, r.Width, r.Height)
		}
	}
}

func TestGenerateVariantsUndecodable(t *testing.T) {
	s := newTestIngest(nil, nil)

	result := &IngestResult{}
	renditions := s.generateVariants([]byte("не изображение"), result)

	if len(renditions) != 0 {
		t.Errorf("вариантов быть не должно, получено %d", len(renditions))
	}
	if len(result.Warnings) != len(model.VariantClasses) {
		t.Fatalf("ожидалось %d предупреждений, получено %d", len(model.VariantClasses), len(result.Warnings))
	}
	for _, w := range result.Warnings {
		if w.Code != WarnVariantGenerationFailed || w.SizeClass == "" {
			t.Errorf("неожиданное предупреждение: %+v", w)
		}
	}
}

func TestUniqueSlug(t *testing.T) {
	assets := &fakeAssets{taken: map[string]bool{
		"sunset":   true,
		"sunset-2": true,
	}}
	s := newTestIngest(nil, assets)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		title string
		want  string
	}{
		{"Morning Fog", "morning-fog"},
		{"Sunset", "sunset-3"},
		{"", "2025-06-01-120000"},
	}
	for _, tc := range tests {
		got, err := s.uniqueSlug(context.Background(), uuid.New(), tc.title, now)
		if err != nil {
			t.Fatalf("uniqueSlug(%q): %v", tc.title, err)
		}
		if got != tc.want {
			t.Errorf("uniqueSlug(%q) = %q, ожидалось %q", tc.title, got, tc.want)
		}
	}
}

func TestIngestRateLimit(t *testing.T) {
	s := newTestIngest(nil, nil)
	s.uploadLimiter = auth.NewRateLimiter(1, time.Hour)
	tenant := &model.Tenant{ID: uuid.New(), Handle: "anna"}

	if err := s.uploadLimiter.Allow(tenant.ID.String()); err != nil {
		t.Fatalf("первая загрузка: %v", err)
	}
	_, err := s.Ingest(context.Background(), tenant, bytes.NewReader(nil), "a.jpg", "127.0.0.1")
	if !errors.Is(err, ErrThrottled) {
		t.Errorf("ожидалась ErrThrottled, получено %v", err)
	}
}

func TestIngestResultStatus(t *testing.T) {
	r := &IngestResult{}
	if r.Status() != StatusComplete {
		t.Errorf("ожидался %s, получен %s", StatusComplete, r.Status())
	}
	r.Warnings = append(r.Warnings, IngestWarning{Code: WarnDescriptionGenerationFailed})
	if r.Status() != StatusPartiallyComplete {
		t.Errorf("ожидался %s, получен %s", StatusPartiallyComplete, r.Status())
	}
}
