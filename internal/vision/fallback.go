package vision

import (
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// Категория по умолчанию, когда описание не сгенерировано.
const FallbackCategory = "uncategorized"

// Fallback формирует детерминированные метаданные из имени файла,
// когда сервис описания недоступен или вернул некорректный ответ.
func Fallback(originalFilename string, uploadedAt time.Time) *Description {
	stem := strings.TrimSuffix(filepath.Base(originalFilename), filepath.Ext(originalFilename))
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)
	stem = strings.Join(strings.Fields(stem), " ")

	title := titleCase(stem)
	if title == "" {
		title = "Без названия " + uploadedAt.UTC().Format("2006-01-02")
	}

	return &Description{
		Title:    title,
		Caption:  "Автоматическое описание недоступно",
		Category: FallbackCategory,
	}
}

// titleCase переводит первую букву каждого слова в верхний регистр.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
