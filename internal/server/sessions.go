package server

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/parley/internal/engine"
	"github.com/mohammad-safakhou/parley/internal/runtime"
	"github.com/mohammad-safakhou/parley/internal/store"
)

// InterviewEngine is the slice of the orchestrator the HTTP layer
// consumes. Narrowed to an interface so handler tests can script turns
// without a provider.
type InterviewEngine interface {
	NextQuestion(ctx context.Context, req engine.NextQuestionRequest) engine.NextQuestionResponse
	ProcessAnswer(ctx context.Context, req engine.ProcessAnswerRequest) engine.ProcessAnswerResponse
	AnalyzeConversation(ctx context.Context, sessionID string) engine.AnalysisResponse
	ResetSession(ctx context.Context, sessionID string) error
}

// SessionsHandler owns the session lifecycle and the interview turns.
type SessionsHandler struct {
	Store  *store.Store
	Engine InterviewEngine
}

func (h *SessionsHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("/:id/reset", h.reset)
	g.GET("/:id/question", h.question)
	g.POST("/:id/answer", h.answer)
	g.GET("/:id/analysis", h.analysis)
}

func userID(c echo.Context) string {
	if v, ok := c.Get("user_id").(string); ok {
		return v
	}
	return ""
}

// ownedSession loads the path session and enforces ownership.
func (h *SessionsHandler) ownedSession(c echo.Context) (engine.Session, error) {
	sess, err := h.Store.GetSession(c.Request().Context(), c.Param("id"), userID(c))
	if err != nil {
		if err == sql.ErrNoRows {
			return engine.Session{}, echo.NewHTTPError(http.StatusNotFound, "session not found")
		}
		return engine.Session{}, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return sess, nil
}

func (h *SessionsHandler) create(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Role) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "role required")
	}
	if strings.TrimSpace(req.Difficulty) == "" {
		req.Difficulty = "mid"
	}
	if req.TotalQuestions <= 0 {
		req.TotalQuestions = 10
	}
	sess, err := h.Store.CreateSession(c.Request().Context(), userID(c), req.Role, req.Difficulty, req.TotalQuestions)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, sess)
}

func (h *SessionsHandler) list(c echo.Context) error {
	sessions, err := h.Store.ListSessions(c.Request().Context(), userID(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if sessions == nil {
		sessions = []engine.Session{}
	}
	return c.JSON(http.StatusOK, sessions)
}

func (h *SessionsHandler) get(c echo.Context) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}

// reset drops the engine-local state (cooldowns, phrasing windows,
// probe counters). Stored answers survive.
func (h *SessionsHandler) reset(c echo.Context) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return err
	}
	if err := h.Engine.ResetSession(c.Request().Context(), sess.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusOK)
}

// question returns the question at ?number= (default: one past the
// stored answers). The engine never fails; worst case is a generic
// fallback question.
func (h *SessionsHandler) question(c echo.Context) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return err
	}

	number := 0
	if raw := c.QueryParam("number"); raw != "" {
		number, err = strconv.Atoi(raw)
		if err != nil || number < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "number must be a positive integer")
		}
	}
	if number == 0 {
		answers, err := h.Store.Answers(c.Request().Context(), sess.ID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		number = len(answers) + 1
	}
	if number > sess.TotalQuestions {
		return echo.NewHTTPError(http.StatusConflict, "interview has no more questions")
	}

	resp := h.Engine.NextQuestion(c.Request().Context(), engine.NextQuestionRequest{
		SessionID:      sess.ID,
		QuestionNumber: number,
		Role:           sess.Role,
		Difficulty:     sess.Difficulty,
		TotalQuestions: sess.TotalQuestions,
		WithAudio:      c.QueryParam("with_audio") == "true",
	})
	return c.JSON(http.StatusOK, resp)
}

// answer stores a submission and, when the flow advances, fetches the
// next question in the same round trip. The final answer completes the
// session.
func (h *SessionsHandler) answer(c echo.Context) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return err
	}
	if sess.Status != engine.StatusInProgress {
		return echo.NewHTTPError(http.StatusConflict, "session is not in progress")
	}

	var req AnswerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.QuestionID < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "question_id required")
	}
	if strings.TrimSpace(req.AnswerText) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "answer_text required")
	}

	ctx := c.Request().Context()
	result := h.Engine.ProcessAnswer(ctx, engine.ProcessAnswerRequest{
		SessionID:      sess.ID,
		QuestionID:     req.QuestionID,
		QuestionText:   req.QuestionText,
		QuestionIntent: engine.Intent(req.QuestionIntent),
		AnswerText:     req.AnswerText,
		TotalQuestions: sess.TotalQuestions,
		WithAudio:      req.WithAudio,
	})

	resp := AnswerResponse{
		AnswerStored: result.AnswerStored,
		AIResponse:   result.AIResponse,
		Quality:      result.Quality,
		FlowControl:  result.FlowControl,
		AudioURL:     result.AudioURL,
	}

	if result.FlowControl.ShouldAdvance {
		if req.QuestionID >= sess.TotalQuestions {
			if err := h.Store.UpdateSessionStatus(ctx, sess.ID, engine.StatusCompleted); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		} else {
			next := h.Engine.NextQuestion(ctx, engine.NextQuestionRequest{
				SessionID:      sess.ID,
				QuestionNumber: req.QuestionID + 1,
				Role:           sess.Role,
				Difficulty:     sess.Difficulty,
				TotalQuestions: sess.TotalQuestions,
				WithAudio:      req.WithAudio,
			})
			resp.NextQuestion = &next
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *SessionsHandler) analysis(c echo.Context) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.Engine.AnalyzeConversation(c.Request().Context(), sess.ID))
}
