package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Время жизни anti-forgery токена.
const CSRFTokenTTL = time.Hour

// Заголовок, в котором клиент передаёт anti-forgery токен.
const CSRFHeaderName = "X-CSRF-Token"

// ErrInvalidCSRF — anti-forgery токен отсутствует, просрочен,
// подделан или привязан к другой сессии.
var ErrInvalidCSRF = errors.New("anti-forgery токен недействителен")

// CSRFManager выпускает и проверяет anti-forgery токены.
// Токен — HMAC-SHA256 от (sessionID, issued), подписанный отдельным
// секретом, не совпадающим с секретом сессий. Формат:
// base64url(sessionID:issued:mac).
type CSRFManager struct {
	secret []byte
}

// NewCSRFManager создаёт менеджер anti-forgery токенов.
func NewCSRFManager(secret string) *CSRFManager {
	return &CSRFManager{secret: []byte(secret)}
}

// Issue выпускает anti-forgery токен, привязанный к сессии.
func (m *CSRFManager) Issue(sessionID string, now time.Time) string {
	issued := strconv.FormatInt(now.Unix(), 10)
	mac := m.sign(sessionID, issued)
	payload := sessionID + ":" + issued + ":" + mac
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// Verify проверяет токен: подпись, срок действия и привязку к сессии.
// Любое нарушение возвращает ErrInvalidCSRF без деталей.
func (m *CSRFManager) Verify(token, sessionID string, now time.Time) error {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ErrInvalidCSRF
	}

	parts := strings.Split(string(raw), ":")
	if len(parts) != 3 {
		return ErrInvalidCSRF
	}
	tokenSession, issuedStr, mac := parts[0], parts[1], parts[2]

	expected := m.sign(tokenSession, issuedStr)
	if !hmac.Equal([]byte(mac), []byte(expected)) {
		return ErrInvalidCSRF
	}

	// Токен чужой сессии отклоняется даже с валидной подписью
	if subtleNeq(tokenSession, sessionID) {
		return ErrInvalidCSRF
	}

	issued, err := strconv.ParseInt(issuedStr, 10, 64)
	if err != nil {
		return ErrInvalidCSRF
	}
	issuedAt := time.Unix(issued, 0)
	if now.Sub(issuedAt) > CSRFTokenTTL || issuedAt.After(now.Add(time.Minute)) {
		return ErrInvalidCSRF
	}

	return nil
}

// sign вычисляет HMAC-SHA256 от sessionID и момента выпуска.
func (m *CSRFManager) sign(sessionID, issued string) string {
	h := hmac.New(sha256.New, m.secret)
	fmt.Fprintf(h, "%s:%s", sessionID, issued)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// subtleNeq сравнивает идентификаторы сессий за постоянное время.
func subtleNeq(a, b string) bool {
	return !hmac.Equal([]byte(a), []byte(b))
}
