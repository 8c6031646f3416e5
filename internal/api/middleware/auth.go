// auth.go — middleware аутентификации и anti-forgery защиты.
//
// SessionAuth проверяет сессионный cookie (HS256 JWT) и помещает сессию
// в контекст запроса. CSRFGuard — единая точка проверки anti-forgery
// токена: каждый изменяющий запрос (POST, PUT, PATCH, DELETE) внутри
// защищённой группы маршрутов обязан нести X-CSRF-Token, исключений
// по отдельным endpoint-ам нет.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/goportfolio/internal/api/errors"
	"github.com/bigkaa/goportfolio/internal/auth"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeySession — ключ сессии в контексте запроса.
const ContextKeySession contextKey = "session"

// SessionFromContext извлекает сессию из контекста запроса.
// Возвращает nil, если запрос не прошёл SessionAuth.
func SessionFromContext(ctx context.Context) *auth.Session {
	sess, _ := ctx.Value(ContextKeySession).(*auth.Session)
	return sess
}

// SessionAuth возвращает middleware, требующий валидную сессию.
// Сессия извлекается из cookie и помещается в контекст запроса.
func SessionAuth(sessions *auth.SessionManager, logger *slog.Logger) func(http.Handler) http.Handler {
	authLogger := logger.With(slog.String("component", "session_auth"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessions.FromRequest(r)
			if err != nil {
				authLogger.Debug("сессия не прошла проверку",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Требуется вход")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CSRFGuard возвращает middleware, проверяющий anti-forgery токен
// на каждом изменяющем запросе. Требует уже проверенную сессию в
// контексте (ставится после SessionAuth). Запрос с валидной сессией,
// но без корректного токена отклоняется 403 до каких-либо побочных
// эффектов.
func CSRFGuard(csrf *auth.CSRFManager, logger *slog.Logger) func(http.Handler) http.Handler {
	guardLogger := logger.With(slog.String("component", "csrf_guard"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				next.ServeHTTP(w, r)
				return
			}

			sess := SessionFromContext(r.Context())
			if sess == nil {
				apierrors.Unauthorized(w, "Требуется вход")
				return
			}

			token := r.Header.Get(auth.CSRFHeaderName)
			if err := csrf.Verify(token, sess.SessionID, time.Now()); err != nil {
				guardLogger.Warn("anti-forgery токен не прошёл проверку",
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("path", r.URL.Path),
				)
				apierrors.Forbidden(w, "Отсутствует или неверен anti-forgery токен")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
