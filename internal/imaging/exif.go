package imaging

import (
	"fmt"
	"io"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/bigkaa/goportfolio/internal/domain/model"
)

// ExtractCameraInfo извлекает параметры съёмки из EXIF.
// Отсутствие EXIF или отдельных полей не является ошибкой:
// возвращается пустая структура. Ошибка означает, что контейнер
// EXIF повреждён и разбор невозможен.
func ExtractCameraInfo(r io.Reader) (model.CameraInfo, error) {
	var info model.CameraInfo

	x, err := exif.Decode(r)
	if err != nil {
		if x == nil || exif.IsCriticalError(err) {
			return info, fmt.Errorf("ошибка разбора EXIF: %w", err)
		}
		// Частичный разбор: читаем то, что удалось
	}

	info.CameraMake = stringTag(x, exif.Make)
	info.CameraModel = stringTag(x, exif.Model)
	info.LensModel = stringTag(x, exif.LensModel)

	// ISO
	if tag, err := x.Get(exif.ISOSpeedRatings); err == nil {
		if iso, err := tag.Int(0); err == nil && iso > 0 {
			info.ISO = iso
		}
	}

	// Диафрагма: рациональное число → f/N.N
	if tag, err := x.Get(exif.FNumber); err == nil {
		if num, den, err := tag.Rat2(0); err == nil && den != 0 {
			info.Aperture = formatAperture(float64(num) / float64(den))
		}
	}

	// Выдержка: дробь → 1/Ns, целые секунды → N.Ns
	if tag, err := x.Get(exif.ExposureTime); err == nil {
		if num, den, err := tag.Rat2(0); err == nil && num != 0 && den != 0 {
			info.ShutterSpeed = formatShutter(num, den)
		}
	}

	// Фокусное расстояние: рациональное число → Nmm
	if tag, err := x.Get(exif.FocalLength); err == nil {
		if num, den, err := tag.Rat2(0); err == nil && den != 0 {
			info.FocalLength = fmt.Sprintf("%.0fmm", float64(num)/float64(den))
		}
	}

	// Дата съёмки
	if taken, err := x.DateTime(); err == nil {
		t := taken.UTC()
		info.TakenAt = &t
	}

	// Координаты съёмки → десятичные градусы
	if lat, lon, err := x.LatLong(); err == nil {
		info.Location = fmt.Sprintf("%.6f, %.6f", lat, lon)
	}

	return info, nil
}

// stringTag возвращает строковое значение тега или пустую строку.
func stringTag(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	v, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

// formatAperture форматирует диафрагму: f/2.8, f/11.
func formatAperture(f float64) string {
	if f == float64(int(f)) {
		return fmt.Sprintf("f/%.0f", f)
	}
	return fmt.Sprintf("f/%.1f", f)
}

// formatShutter форматирует выдержку: 1/250s для дробных,
// 2.5s для длинных.
func formatShutter(num, den int64) string {
	if num < den {
		return fmt.Sprintf("1/%ds", den/num)
	}
	return fmt.Sprintf("%.1fs", float64(num)/float64(den))
}
