package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bigkaa/goportfolio/internal/domain/model"
)

// Имя cookie сессионного токена.
const SessionCookieName = "portfolio_session"

// Ошибки проверки сессионного токена.
var (
	ErrNoSession      = errors.New("сессионный токен отсутствует")
	ErrInvalidSession = errors.New("сессионный токен недействителен")
)

// Session — проверенная сессия тенанта из JWT claims.
type Session struct {
	// TenantID — идентификатор тенанта (claim sub)
	TenantID uuid.UUID
	// Role — роль тенанта (claim role)
	Role model.Role
	// SessionID — уникальный идентификатор сессии (claim jti).
	// К нему привязываются anti-forgery токены.
	SessionID string
	// ExpiresAt — время истечения сессии
	ExpiresAt time.Time
}

// sessionClaims — JWT claims сессионного токена.
type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SessionManager подписывает и проверяет сессионные токены HS256.
// Секрет подписи общий для процесса и задаётся конфигурацией.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	secure bool
}

// NewSessionManager создаёт менеджер сессий.
// secure управляет флагом Secure у cookie (false для локальной разработки).
func NewSessionManager(secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
	}
}

// TTL возвращает время жизни сессии.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue выпускает подписанный сессионный токен для тенанта.
// Каждый токен получает уникальный jti.
func (m *SessionManager) Issue(tenantID uuid.UUID, role model.Role, now time.Time) (string, *Session, error) {
	jti := uuid.New().String()
	expiresAt := now.Add(m.ttl)

	claims := sessionClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tenantID.String(),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("ошибка подписи сессионного токена: %w", err)
	}

	return signed, &Session{
		TenantID:  tenantID,
		Role:      model.Role(claims.Role),
		SessionID: jti,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify проверяет подпись и срок действия токена и возвращает сессию.
// Допустим только алгоритм HS256: токены с другим alg отклоняются.
func (m *SessionManager) Verify(tokenString string) (*Session, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}

	tenantID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidSession
	}
	if claims.ID == "" {
		return nil, ErrInvalidSession
	}
	role := model.Role(claims.Role)
	if role != model.RoleAdmin && role != model.RoleTenant {
		return nil, ErrInvalidSession
	}

	return &Session{
		TenantID:  tenantID,
		Role:      role,
		SessionID: claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// FromRequest извлекает и проверяет сессию из cookie запроса.
func (m *SessionManager) FromRequest(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, ErrNoSession
	}
	return m.Verify(cookie.Value)
}

// SetCookie устанавливает сессионный cookie.
// HttpOnly всегда, SameSite=Lax, Secure в deployed-режиме.
func (m *SessionManager) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie удаляет сессионный cookie.
func (m *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
