package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Лимиты тегов изображения.
const (
	MaxTags      = 50
	MaxTagLength = 50
)

var (
	handleRe      = regexp.MustCompile(`^[a-z0-9-]+$`)
	isoRe         = regexp.MustCompile(`^\d+$`)
	apertureRe    = regexp.MustCompile(`(?i)^f/\d+(\.\d+)?$`)
	focalRe       = regexp.MustCompile(`(?i)^\d+(-\d+)?mm$`)
	shutterFracRe = regexp.MustCompile(`^\d+/\d+s?$`)
	shutterSecRe  = regexp.MustCompile(`^\d+(\.\d+)?(s|")$`)
)

// ValidateHandle проверяет идентификатор тенанта: непустой,
// строчные латинские буквы, цифры и дефис, не из списка зарезервированных.
func ValidateHandle(handle string) error {
	if handle == "" {
		return fmt.Errorf("handle не может быть пустым")
	}
	if len(handle) > 63 {
		return fmt.Errorf("handle длиннее 63 символов")
	}
	if !handleRe.MatchString(handle) {
		return fmt.Errorf("handle может содержать только строчные латинские буквы, цифры и дефис")
	}
	if ReservedHandles[handle] {
		return fmt.Errorf("handle %q зарезервирован", handle)
	}
	return nil
}

// ValidateDisplayName проверяет отображаемое имя: непустое после
// обрезки пробелов, без двойных пробелов. Возвращает нормализованное имя.
func ValidateDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("отображаемое имя не может быть пустым")
	}
	if strings.Contains(name, "  ") {
		return "", fmt.Errorf("отображаемое имя не может содержать подряд идущие пробелы")
	}
	return name, nil
}

// ValidateISO проверяет значение светочувствительности: только цифры,
// диапазон 25..10000000. Пустая строка допустима (значение не задано).
func ValidateISO(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	if !isoRe.MatchString(v) {
		return 0, fmt.Errorf("ISO должен быть числом, например 100, 400, 3200")
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 25 || n > 10000000 {
		return 0, fmt.Errorf("ISO должен быть в диапазоне от 25 до 10000000")
	}
	return n, nil
}

// ValidateAperture проверяет формат диафрагмы: f/N или f/N.N.
func ValidateAperture(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	if !apertureRe.MatchString(v) {
		return "", fmt.Errorf("диафрагма должна быть в формате f/2.8 или f/1.4")
	}
	return v, nil
}

// ValidateShutterSpeed проверяет формат выдержки:
// 1/250s, 1/1000, 1", 2.5s и подобные.
func ValidateShutterSpeed(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	if !shutterFracRe.MatchString(v) && !shutterSecRe.MatchString(v) {
		return "", fmt.Errorf(`выдержка должна быть в формате 1/250s, 1/1000, 1" или 2.5s`)
	}
	return v, nil
}

// ValidateFocalLength проверяет формат фокусного расстояния:
// 50mm или 24-70mm.
func ValidateFocalLength(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	if !focalRe.MatchString(v) {
		return "", fmt.Errorf("фокусное расстояние должно быть в формате 50mm или 24-70mm")
	}
	return v, nil
}

// NormalizeTags разбирает строку тегов через запятую, обрезает пробелы,
// отбрасывает пустые и проверяет лимиты количества и длины.
func NormalizeTags(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		tag := strings.TrimSpace(p)
		if tag == "" {
			continue
		}
		if len(tag) > MaxTagLength {
			return nil, fmt.Errorf("тег %q длиннее %d символов", tag, MaxTagLength)
		}
		tags = append(tags, tag)
	}

	if len(tags) > MaxTags {
		return nil, fmt.Errorf("допустимо не более %d тегов", MaxTags)
	}
	return tags, nil
}
