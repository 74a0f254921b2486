package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/parley/internal/intake"
	"github.com/mohammad-safakhou/parley/internal/runtime"
)

// IntakeHandler exposes resume and job-posting scoring.
type IntakeHandler struct {
	Intake *intake.Service
}

func (h *IntakeHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.POST("/score", h.score)
}

func (h *IntakeHandler) score(c echo.Context) error {
	var req IntakeScoreRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Role) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "role required")
	}

	ctx := c.Request().Context()
	var (
		text string
		err  error
	)
	switch {
	case strings.TrimSpace(req.URL) != "":
		text, err = h.Intake.FetchPosting(ctx, req.URL)
	case strings.TrimSpace(req.Content) != "":
		text, err = h.Intake.ExtractText(req.Content, req.ContentType)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "content or url required")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	return c.JSON(http.StatusOK, h.Intake.ScoreResume(ctx, text, req.Role, req.Difficulty))
}
