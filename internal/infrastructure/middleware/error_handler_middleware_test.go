package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "mirrorbot/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestRouter(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := zap.NewNop().Sugar()
	router.Use(RecoveryMiddleware(logger), ErrorHandlerMiddleware(logger), TracingMiddleware())
	router.GET("/test", handler)
	return router
}

func TestErrorHandlerMiddleware_AppError(t *testing.T) {
	router := newTestRouter(func(c *gin.Context) {
		_ = c.Error(apperrors.NewStoreUnavailableError(errors.New("mongo down")))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "STORE_UNAVAILABLE")
	assert.Contains(t, w.Body.String(), `"retryable":true`)
}

func TestErrorHandlerMiddleware_PlainError(t *testing.T) {
	router := newTestRouter(func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestRecoveryMiddleware(t *testing.T) {
	router := newTestRouter(func(c *gin.Context) {
		panic("unexpected")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(apperrors.ErrCodeInvalidDuration))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(apperrors.ErrCodeNotEntitled))
	assert.Equal(t, http.StatusTooManyRequests, HTTPStatus(apperrors.ErrCodeRateLimit))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(apperrors.ErrorCode("OTHER")))
}
