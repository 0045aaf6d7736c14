package handlers

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"pricewatch/pkg/models"
	"pricewatch/pkg/utils"
)

// ErrorHandler renders CustomError values returned by handlers with their
// own status code; anything else falls through to echo's default handling.
func ErrorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var ce *utils.CustomError
		if errors.As(err, &ce) {
			if !c.Response().Committed {
				_ = c.JSON(ce.Code, models.ErrorResponse{
					Error:     ce.Message,
					Message:   ce.Error(),
					RequestID: requestID(c),
					Timestamp: time.Now(),
				})
			}
			return
		}
		e.DefaultHTTPErrorHandler(err, c)
	}
}
