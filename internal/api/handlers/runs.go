package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"pricewatch/internal/runs"
	"pricewatch/pkg/models"
	"pricewatch/pkg/utils"
)

func withTimeout(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), d)
}

// CreateRunHandler accepts an asynchronous run over a set of identifiers,
// or over everything due in the catalog when the list is empty.
func CreateRunHandler(manager *runs.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := requestID(c)

		var req models.RunRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "invalid_request",
				Message:   "Invalid request body: " + err.Error(),
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		if err := validate.Struct(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "validation_failed",
				Message:   "Identifiers must be 8-14 digits: " + err.Error(),
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		run, err := manager.Submit(req.Identifiers)
		if err != nil {
			return c.JSON(http.StatusConflict, models.ErrorResponse{
				Error:     "run_rejected",
				Message:   err.Error(),
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		return c.JSON(http.StatusAccepted, models.RunAccepted{
			RunID:     run.ID,
			Status:    string(run.Status),
			Total:     len(req.Identifiers),
			Timestamp: run.CreatedAt,
		})
	}
}

// GetRunHandler returns the state of one run, including results once the
// run has finished.
func GetRunHandler(manager *runs.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		run, err := manager.Get(c.Param("id"))
		if err != nil {
			return utils.NewRunNotFoundError(c.Param("id"))
		}
		return c.JSON(http.StatusOK, run)
	}
}

// ListRunsHandler returns all known runs, newest first.
func ListRunsHandler(manager *runs.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		list := manager.List()
		return c.JSON(http.StatusOK, map[string]interface{}{
			"runs":  list,
			"count": len(list),
		})
	}
}
