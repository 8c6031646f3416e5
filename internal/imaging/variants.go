package imaging

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/bigkaa/goportfolio/internal/domain/model"
)

// Качество JPEG для производных изображений.
const variantJPEGQuality = 85

// VariantResult — сгенерированное производное изображение.
type VariantResult struct {
	Class  model.VariantClass
	Data   []byte
	Width  int
	Height int
}

// DecodeImage декодирует изображение для генерации вариантов.
func DecodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("ошибка декодирования изображения: %w", err)
	}
	return img, nil
}

// GenerateVariant создаёт производное изображение указанного класса.
// Large и medium никогда не увеличивают оригинал: изображение меньше
// целевого размера кодируется как есть. Thumbnail приводится к целевому
// размеру всегда, в том числе увеличением. Результат — JPEG q85.
func GenerateVariant(img image.Image, class model.VariantClass) (*VariantResult, error) {
	maxSize := model.VariantMaxSize(class)
	if maxSize == 0 {
		return nil, fmt.Errorf("неизвестный класс варианта: %q", class)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	var resized image.Image
	switch {
	case class == model.VariantThumbnail:
		// Thumbnail всегда приводится к целевой длинной стороне
		if w >= h {
			resized = imaging.Resize(img, maxSize, 0, imaging.Lanczos)
		} else {
			resized = imaging.Resize(img, 0, maxSize, imaging.Lanczos)
		}
	case w <= maxSize && h <= maxSize:
		// Без увеличения
		resized = img
	default:
		resized = imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(variantJPEGQuality)); err != nil {
		return nil, fmt.Errorf("ошибка кодирования варианта %s: %w", class, err)
	}

	rb := resized.Bounds()
	return &VariantResult{
		Class:  class,
		Data:   buf.Bytes(),
		Width:  rb.Dx(),
		Height: rb.Dy(),
	}, nil
}
