package model

import (
	"time"

	"github.com/google/uuid"
)

// VariantClass — класс производного изображения.
type VariantClass string

const (
	// VariantLarge — до 1200px по длинной стороне
	VariantLarge VariantClass = "large"
	// VariantMedium — до 800px по длинной стороне
	VariantMedium VariantClass = "medium"
	// VariantThumbnail — 400px, единственный класс с допустимым увеличением
	VariantThumbnail VariantClass = "thumbnail"
)

// VariantClasses — все классы вариантов в порядке генерации.
var VariantClasses = []VariantClass{VariantLarge, VariantMedium, VariantThumbnail}

// VariantMaxSize возвращает целевой размер длинной стороны для класса.
func VariantMaxSize(c VariantClass) int {
	switch c {
	case VariantLarge:
		return 1200
	case VariantMedium:
		return 800
	case VariantThumbnail:
		return 400
	}
	return 0
}

// CameraInfo — параметры съёмки, извлечённые из EXIF.
// Все поля опциональны: отсутствие EXIF не является ошибкой.
type CameraInfo struct {
	// CameraMake — производитель камеры
	CameraMake string `json:"camera_make,omitempty"`
	// CameraModel — модель камеры
	CameraModel string `json:"camera_model,omitempty"`
	// LensModel — модель объектива
	LensModel string `json:"lens_model,omitempty"`
	// ISO — светочувствительность
	ISO int `json:"iso,omitempty"`
	// Aperture — диафрагма в формате f/N или f/N.N
	Aperture string `json:"aperture,omitempty"`
	// ShutterSpeed — выдержка, например 1/250s или 2.5s
	ShutterSpeed string `json:"shutter_speed,omitempty"`
	// FocalLength — фокусное расстояние, например 50mm
	FocalLength string `json:"focal_length,omitempty"`
	// TakenAt — дата съёмки из EXIF
	TakenAt *time.Time `json:"taken_at,omitempty"`
	// Location — координаты съёмки в десятичных градусах, "lat, lon"
	Location string `json:"location,omitempty"`
}

// Empty сообщает, что из EXIF не извлечено ни одного параметра.
func (c *CameraInfo) Empty() bool {
	return c.CameraMake == "" && c.CameraModel == "" && c.LensModel == "" &&
		c.ISO == 0 && c.Aperture == "" && c.ShutterSpeed == "" &&
		c.FocalLength == "" && c.TakenAt == nil && c.Location == ""
}

// Asset — изображение в портфолио тенанта вместе с описательными
// метаданными и состоянием публикации.
type Asset struct {
	// ID — уникальный идентификатор (UUID v4)
	ID uuid.UUID `json:"id"`

	// OwnerID — идентификатор тенанта-владельца
	OwnerID uuid.UUID `json:"owner_id"`

	// Title — название работы
	Title string `json:"title"`

	// Slug — URL-идентификатор, уникальный в пределах владельца
	Slug string `json:"slug"`

	// Description — описание (сгенерированное или отредактированное)
	Description string `json:"description"`

	// Category — категория работы
	Category string `json:"category"`

	// Tags — теги работы, не более 50 штук по 50 символов
	Tags []string `json:"tags"`

	// StorageName — имя оригинала на диске.
	// Формат: {timestamp}_{sha256[:16]}{ext}
	StorageName string `json:"-"`

	// OriginalFilename — имя файла при загрузке
	OriginalFilename string `json:"original_filename"`

	// ContentType — MIME-тип оригинала (image/jpeg или image/png)
	ContentType string `json:"content_type"`

	// Size — размер оригинала в байтах
	Size int64 `json:"size"`

	// Checksum — SHA-256 хэш содержимого оригинала
	Checksum string `json:"checksum"`

	// Width, Height — размеры оригинала в пикселях
	Width  int `json:"width"`
	Height int `json:"height"`

	// Camera — параметры съёмки из EXIF (может быть пустым)
	Camera CameraInfo `json:"camera"`

	// Published — изображение видно в публичной галерее
	Published bool `json:"published"`

	// Featured — изображение отмечено как избранное.
	// Допустимо только при Published = true.
	Featured bool `json:"featured"`

	// Version — счётчик версий для оптимистичной блокировки
	Version int `json:"version"`

	// CreatedAt — дата загрузки (UTC)
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — дата последнего изменения (UTC)
	UpdatedAt time.Time `json:"updated_at"`

	// PublishedAt — дата последней публикации, nil для черновиков
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// AssetVariant — производное изображение (large, medium, thumbnail).
type AssetVariant struct {
	// ID — уникальный идентификатор варианта
	ID uuid.UUID `json:"id"`

	// AssetID — идентификатор исходного изображения
	AssetID uuid.UUID `json:"asset_id"`

	// Class — класс варианта
	Class VariantClass `json:"class"`

	// StorageName — имя файла варианта на диске
	StorageName string `json:"-"`

	// Width, Height — размеры варианта в пикселях
	Width  int `json:"width"`
	Height int `json:"height"`

	// Size — размер файла варианта в байтах
	Size int64 `json:"size"`

	// CreatedAt — дата генерации (UTC)
	CreatedAt time.Time `json:"created_at"`
}
