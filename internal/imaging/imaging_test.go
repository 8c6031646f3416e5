package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/bigkaa/goportfolio/internal/domain/model"
)

// encodeTestImage кодирует одноцветное изображение заданного размера.
func encodeTestImage(t *testing.T, w, h int, format string) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 120, G: 140, B: 160, A: 255})
		}
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case "png":
		err = png.Encode(&buf, img)
	default:
		t.Fatalf("неизвестный формат %q", format)
	}
	if err != nil {
		t.Fatalf("ошибка кодирования тестового изображения: %v", err)
	}
	return buf.Bytes()
}

// TestValidate проверяет валидацию содержимого изображений.
func TestValidate(t *testing.T) {
	jpg := encodeTestImage(t, 100, 80, "jpeg")
	info, err := Validate(jpg)
	if err != nil {
		t.Fatalf("Validate(jpeg): %v", err)
	}
	if info.Format != "jpeg" || info.ContentType != "image/jpeg" {
		t.Errorf("формат: ожидался jpeg, получено %q / %q", info.Format, info.ContentType)
	}
	if info.Width != 100 || info.Height != 80 {
		t.Errorf("размеры: ожидалось 100x80, получено %dx%d", info.Width, info.Height)
	}

	pngData := encodeTestImage(t, 50, 50, "png")
	info, err = Validate(pngData)
	if err != nil {
		t.Fatalf("Validate(png): %v", err)
	}
	if info.Format != "png" {
		t.Errorf("формат: ожидался png, получено %q", info.Format)
	}

	// Не изображение
	if _, err := Validate([]byte("просто текст, не картинка")); err == nil {
		t.Error("текст должен быть отклонён")
	}
}

// TestAllowedContentType проверяет список допустимых MIME-типов.
func TestAllowedContentType(t *testing.T) {
	if !AllowedContentType("image/jpeg") || !AllowedContentType("image/png") {
		t.Error("jpeg и png должны быть разрешены")
	}
	for _, ct := range []string{"image/webp", "image/gif", "application/pdf", ""} {
		if AllowedContentType(ct) {
			t.Errorf("%q не должен быть разрешён", ct)
		}
	}
}

// TestExtractCameraInfo_NoEXIF проверяет, что изображение без EXIF
// даёт пустую структуру (или ошибку разбора, но не панику).
func TestExtractCameraInfo_NoEXIF(t *testing.T) {
	jpg := encodeTestImage(t, 10, 10, "jpeg")

	info, err := ExtractCameraInfo(bytes.NewReader(jpg))
	if err == nil && !info.Empty() {
		t.Errorf("изображение без EXIF должно давать пустые параметры: %+v", info)
	}
}

// TestGenerateVariant_Downscale проверяет уменьшение больших изображений.
func TestGenerateVariant_Downscale(t *testing.T) {
	src := encodeTestImage(t, 2400, 1600, "jpeg")
	img, err := DecodeImage(src)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}

	for _, class := range model.VariantClasses {
		v, err := GenerateVariant(img, class)
		if err != nil {
			t.Fatalf("GenerateVariant(%s): %v", class, err)
		}
		maxSize := model.VariantMaxSize(class)
		if v.Width != maxSize {
			t.Errorf("%s: длинная сторона должна быть %d, получено %d", class, maxSize, v.Width)
		}
		if len(v.Data) == 0 {
			t.Errorf("%s: пустые данные варианта", class)
		}
		// Результат — валидный JPEG
		if _, err := Validate(v.Data); err != nil {
			t.Errorf("%s: вариант не декодируется: %v", class, err)
		}
	}
}

// TestGenerateVariant_NoUpscale проверяет, что large и medium
// не увеличивают маленький оригинал, а thumbnail увеличивает.
func TestGenerateVariant_NoUpscale(t *testing.T) {
	src := encodeTestImage(t, 300, 200, "jpeg")
	img, err := DecodeImage(src)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}

	for _, class := range []model.VariantClass{model.VariantLarge, model.VariantMedium} {
		v, err := GenerateVariant(img, class)
		if err != nil {
			t.Fatalf("GenerateVariant(%s): %v", class, err)
		}
		if v.Width != 300 || v.Height != 200 {
			t.Errorf("%s: размеры не должны меняться, получено %dx%d", class, v.Width, v.Height)
		}
	}

	thumb, err := GenerateVariant(img, model.VariantThumbnail)
	if err != nil {
		t.Fatalf("GenerateVariant(thumbnail): %v", err)
	}
	if thumb.Width != 400 {
		t.Errorf("thumbnail должен быть приведён к 400 по длинной стороне, получено %d", thumb.Width)
	}
}

// TestGenerateVariant_Portrait проверяет ориентацию по длинной стороне.
func TestGenerateVariant_Portrait(t *testing.T) {
	src := encodeTestImage(t, 1600, 2400, "jpeg")
	img, _ := DecodeImage(src)

	v, err := GenerateVariant(img, model.VariantLarge)
	if err != nil {
		t.Fatalf("GenerateVariant: %v", err)
	}
	if v.Height != 1200 {
		t.Errorf("портретная ориентация: длинная сторона %d, ожидалось 1200", v.Height)
	}
	if v.Width >= v.Height {
		t.Error("пропорции должны сохраняться")
	}
}
