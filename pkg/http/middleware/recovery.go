package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	applogger "EquityPulse/pkg/logger"

	"github.com/labstack/echo/v4"
	zlog "github.com/rs/zerolog/log"
)

// Recover turns handler panics into a 500 response instead of tearing
// down the server.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				err, ok := r.(error)
				if !ok {
					err = fmt.Errorf("%v", r)
				}
				stack := debug.Stack()
				if l != nil {
					l.Error("handler panic",
						applogger.String("path", c.Path()),
						applogger.Error(err),
						applogger.String("stack", string(stack)),
					)
				} else {
					zlog.Error().Err(err).Bytes("stack", stack).Msg("handler panic")
				}
				_ = c.JSON(http.StatusInternalServerError, map[string]interface{}{
					"status":  http.StatusInternalServerError,
					"message": "Internal Server Error",
				})
			}()
			return next(c)
		}
	}
}
