// Пакет imaging — валидация загруженных изображений, извлечение
// параметров съёмки из EXIF и генерация производных изображений.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	// Регистрация декодеров для image.Decode
	_ "image/jpeg"
	_ "image/png"
)

// Допустимые MIME-типы загружаемых изображений.
var allowedContentTypes = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
}

// Ошибки валидации.
var (
	// ErrUnsupportedFormat — формат вне допустимого набора
	ErrUnsupportedFormat = errors.New("поддерживаются только изображения JPEG и PNG")
	// ErrNotAnImage — содержимое не декодируется как изображение
	ErrNotAnImage = errors.New("файл не является корректным изображением")
)

// ImageInfo — результат валидации изображения.
type ImageInfo struct {
	// Format — формат изображения (jpeg, png)
	Format string
	// ContentType — MIME-тип
	ContentType string
	// Width, Height — размеры в пикселях
	Width  int
	Height int
}

// AllowedContentType проверяет заявленный MIME-тип.
func AllowedContentType(contentType string) bool {
	_, ok := allowedContentTypes[contentType]
	return ok
}

// Validate проверяет содержимое изображения: оно должно декодироваться
// как JPEG или PNG независимо от заявленного клиентом типа.
func Validate(data []byte) (*ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, ErrNotAnImage
	}

	var contentType string
	switch format {
	case "jpeg":
		contentType = "image/jpeg"
	case "png":
		contentType = "image/png"
	default:
		return nil, ErrUnsupportedFormat
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: нулевые размеры", ErrNotAnImage)
	}

	return &ImageInfo{
		Format:      format,
		ContentType: contentType,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, nil
}
