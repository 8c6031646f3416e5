// Пакет auth — аутентификация Portfolio API: секретные фразы (bcrypt),
// сессионные токены (HS256 JWT в httpOnly cookie), anti-forgery токены
// и ограничение частоты запросов.
package auth

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Минимальная длина секретной фразы тенанта.
const MinSecretPhraseLength = 12

// Стоимость bcrypt для хэширования секретных фраз.
const bcryptCost = 12

// Набор специальных символов, допустимых в секретной фразе.
const specialChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"

// ErrWeakSecret — секретная фраза не удовлетворяет политике.
// Единое сообщение без указания конкретной нарушенной проверки.
var ErrWeakSecret = errors.New(
	"секретная фраза должна быть не короче 12 символов и содержать строчную букву, заглавную букву, цифру и специальный символ")

// ValidateSecretPhrase проверяет секретную фразу по политике:
// минимум 12 символов, хотя бы одна строчная и заглавная буква,
// цифра и специальный символ. Любое нарушение возвращает одну и ту же
// ошибку ErrWeakSecret: детали не раскрываются.
func ValidateSecretPhrase(phrase string) error {
	if len(phrase) < MinSecretPhraseLength {
		return ErrWeakSecret
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range phrase {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		}
	}

	if !hasLower || !hasUpper || !hasDigit || !hasSpecial {
		return ErrWeakSecret
	}
	return nil
}

// HashSecretPhrase возвращает bcrypt-хэш секретной фразы.
func HashSecretPhrase(phrase string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(phrase), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifySecretPhrase сверяет секретную фразу с bcrypt-хэшем.
func VerifySecretPhrase(phrase, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(phrase)) == nil
}

// dummySecretHash — фиксированный bcrypt-хэш той же стоимости, что и
// у реальных учётных записей. Не соответствует ни одной фразе в системе.
const dummySecretHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// BurnSecretPhrase выполняет холостое bcrypt-сравнение. Вызывается на
// пути неизвестного handle, чтобы время ответа не отличалось от пути
// неверной фразы. Результат всегда отрицательный.
func BurnSecretPhrase(phrase string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummySecretHash), []byte(phrase))
}
