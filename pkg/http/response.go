package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// DataResponse renders the standard envelope. The transport status is
// always 200; clients read the applicative status from the body, which
// keeps proxies and SDK retry layers out of error handling.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	body := APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	}
	return c.JSON(http.StatusOK, body)
}

func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

func BadRequestResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusBadRequest, data)
}

func InternalServerErrorResponse(c echo.Context) error {
	return DataResponse(c, http.StatusInternalServerError, "Something went wrong")
}

// AppErrorResponse renders an AppError under its own status. Anything
// that is not an AppError is masked as a plain 500 so internal detail
// never leaks.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return DataResponse(c, appErr.Status, []*AppError{appErr})
	}
	return InternalServerErrorResponse(c)
}
