// Package api wires the HTTP surface: board reads and full-board replacement,
// session auth, and the AI route that reconciles assistant output into
// deterministic board mutations.
package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"kanban-api/ai"
	"kanban-api/domain"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, auth *Auth, completer Completer, limiter Limiter, logger *log.Logger) {
	e.GET("/api/health", health())
	e.GET("/api/auth/status", authStatus(auth))
	e.POST("/api/auth/login", login(auth, logger))
	e.POST("/api/auth/logout", logout(auth, logger))
	e.GET("/api/board", getBoard(store, auth))
	e.PUT("/api/board", putBoard(store, auth))
	e.POST("/api/ai/board", aiBoard(store, auth, completer, limiter, logger))
}

func health() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

func authStatus(auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		_, err := auth.SessionFromRequest(c)
		return c.JSON(http.StatusOK, map[string]bool{"authenticated": err == nil})
	}
}

func login(auth *Auth, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := decodeBody(c, loginRequestMaxSize, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if !auth.VerifyCredentials(req.Username, req.Password) {
			logger.WithField("username", req.Username).Warn("login failed: invalid credentials")
			return c.String(http.StatusUnauthorized, "invalid_credentials")
		}

		token, err := auth.IssueSession(c.Request().Context())
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "session_error")
		}
		setSessionCookie(c, token, auth.SecureCookies)
		logger.WithField("username", req.Username).Info("login: session created")
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

func logout(auth *Auth, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth.InvalidateSession(c)
		clearSessionCookie(c, auth.SecureCookies)
		logger.Info("logout: session invalidated")
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

func getBoard(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.SessionFromRequest(c); err != nil {
			return c.String(http.StatusUnauthorized, "unauthorized")
		}
		board, err := store.FetchBoard(c.Request().Context())
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "storage_error")
		}
		return c.JSON(http.StatusOK, board)
	}
}

func putBoard(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.SessionFromRequest(c); err != nil {
			return c.String(http.StatusUnauthorized, "unauthorized")
		}

		var board domain.Board
		if err := decodeBody(c, boardRequestMaxSize, &board); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := domain.Validate(board); err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}

		persisted, err := store.ReplaceBoard(c.Request().Context(), board)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "storage_error")
		}
		return c.JSON(http.StatusOK, persisted)
	}
}

func aiBoard(store Storage, auth Authenticator, completer Completer, limiter Limiter, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newAIRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		sessionID, authErr := auth.SessionFromRequest(c)
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, "unauthorized")
			return err
		}

		var req aiBoardRequest
		if decodeErr := decodeBody(c, aiRequestMaxSize, &req); decodeErr != nil {
			metrics.SetErrorStage("decode")
			err = c.String(http.StatusBadRequest, "invalid body")
			return err
		}
		if len(req.Messages) == 0 {
			metrics.SetErrorStage("missing_messages")
			err = c.String(http.StatusBadRequest, "missing_messages")
			return err
		}
		for _, m := range req.Messages {
			if !domain.ValidMessage(m) {
				metrics.SetErrorStage("invalid_messages")
				err = c.String(http.StatusBadRequest, "invalid_messages")
				return err
			}
		}

		if !limiter.Allow(sessionID) {
			metrics.SetErrorStage("rate_limit")
			err = c.String(http.StatusTooManyRequests, "rate_limited")
			return err
		}

		loadStart := time.Now()
		board, loadErr := store.FetchBoard(ctx)
		metrics.ObserveLoad(time.Since(loadStart))
		if loadErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(loadErr)
			err = c.String(http.StatusInternalServerError, "storage_error")
			return err
		}

		// Pure summary requests are answered locally; the completion
		// provider is never invoked for them.
		if domain.IsSummaryRequest(req.Messages) {
			metrics.SetSummaryShortcut(true)
			err = c.JSON(http.StatusOK, aiBoardResponse{
				SchemaVersion:    domain.SchemaVersion,
				Board:            board,
				Operations:       emptyOperations,
				AssistantMessage: domain.Summarize(board),
			})
			return err
		}

		completeStart := time.Now()
		raw, completeErr := completer.Complete(ctx, ai.BuildSystemPrompt(board), req.Messages)
		metrics.ObserveComplete(time.Since(completeStart))
		if completeErr != nil {
			if errors.Is(completeErr, ai.ErrMissingAPIKey) {
				metrics.SetErrorStage("config")
				err = c.String(http.StatusInternalServerError, "missing_openrouter_key")
				return err
			}
			metrics.SetErrorStage("upstream")
			var upstream *ai.UpstreamError
			if errors.As(completeErr, &upstream) {
				err = c.String(http.StatusBadGateway, upstream.Detail)
				return err
			}
			err = c.String(http.StatusBadGateway, "upstream_error")
			return err
		}

		validateStart := time.Now()
		envelope, parseErr := domain.ParseResponse(raw)
		metrics.ObserveValidate(time.Since(validateStart))
		if parseErr != nil {
			metrics.SetErrorStage("validate")
			switch {
			case errors.Is(parseErr, domain.ErrMalformedJSON):
				err = c.String(http.StatusBadGateway, "openrouter_invalid_json")
			case errors.Is(parseErr, domain.ErrSchemaVersion):
				err = c.String(http.StatusBadGateway, "openrouter_schema_version_mismatch")
			default:
				logger.WithField("raw", raw).Warn("openrouter invalid schema response")
				err = c.String(http.StatusBadGateway, "openrouter_invalid_schema")
			}
			return err
		}
		if envelope.EchoInvalid != nil {
			// Diagnostic only: the echoed board is never persisted, but an
			// inconsistent echo usually means the operations need a close look.
			logger.WithError(envelope.EchoInvalid).Warn("assistant echoed an inconsistent board")
		}

		applyStart := time.Now()
		next, applyErr := domain.Apply(board, envelope.Operations)
		metrics.ObserveApply(time.Since(applyStart))
		if applyErr != nil {
			metrics.SetErrorStage("apply")
			var internal domain.InternalError
			if errors.As(applyErr, &internal) {
				logger.WithError(applyErr).Error("operation batch produced an inconsistent board")
				err = c.String(http.StatusInternalServerError, "applier_internal_error")
				return err
			}
			err = c.String(http.StatusBadRequest, "invalid_board")
			return err
		}
		metrics.SetOperationCount(len(envelope.Operations))

		persistStart := time.Now()
		persisted, saveErr := store.ReplaceBoard(ctx, next)
		metrics.ObservePersist(time.Since(persistStart))
		if saveErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(saveErr)
			err = c.String(http.StatusInternalServerError, "storage_error")
			return err
		}

		err = c.JSON(http.StatusOK, aiBoardResponse{
			SchemaVersion:    domain.SchemaVersion,
			Board:            persisted,
			Operations:       envelope.OperationsJSON,
			AssistantMessage: envelope.AssistantMessage,
		})
		return err
	}
}

func decodeBody(c echo.Context, maxSize int64, out any) error {
	lr := io.LimitReader(c.Request().Body, maxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
