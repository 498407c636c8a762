// internal/api/auth.go
package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// CronKeyHeader - заголовок с общим секретом.
const CronKeyHeader = "x-cron-key"

// RequireCronKey пропускает запрос, если секрет пуст либо совпадает с
// предъявленным ключом. Непустой заголовок x-cron-key имеет приоритет,
// параметр key проверяется только без заголовка.
func RequireCronKey(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" || keyMatches(presentedKey(c), secret) {
				return next(c)
			}
			return c.JSON(http.StatusUnauthorized, errorResponse{OK: false, Error: "unauthorized"})
		}
	}
}

func presentedKey(c echo.Context) string {
	if key := c.Request().Header.Get(CronKeyHeader); key != "" {
		return key
	}
	return c.QueryParam("key")
}

func keyMatches(candidate, secret string) bool {
	if candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(secret)) == 1
}
