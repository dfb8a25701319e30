package errors

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("test validation error", "field1")

	assert.Equal(t, "[VALIDATION_ERROR] test validation error", err.Error())
	assert.Equal(t, CategoryValidation, err.Category)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
	assert.True(t, IsValidation(err))
}

func TestNewValidationErrorWithMap(t *testing.T) {
	t.Run("single field", func(t *testing.T) {
		err := NewValidationErrorWithMap(map[string]string{"name": "must not be blank"})

		assert.Equal(t, "name: must not be blank", err.Msg)
		assert.Equal(t, map[string]string{"name": "must not be blank"}, err.Fields)
	})

	t.Run("several fields", func(t *testing.T) {
		err := NewValidationErrorWithMap(map[string]string{
			"coffee_weight_in": "must be greater than 0",
			"extraction_time":  "must be between 1 and 120 seconds",
			"grinder_setting":  "must not be blank",
		})

		assert.Equal(t, "invalid fields: coffee_weight_in, extraction_time, grinder_setting", err.Msg)
		assert.Len(t, err.Fields, 3)
		assert.Equal(t, errbuilder.CodeInvalidArgument, err.ErrCode())
	})
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("bean", "abc")

	assert.Equal(t, "[NOT_FOUND] bean abc not found", err.Error())
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus)
	assert.True(t, IsNotFound(err))
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		status   int
	}{
		{name: "wrapped not found", err: fmt.Errorf("shot 42: %w", ErrNotFound), category: CategoryNotFound, status: http.StatusNotFound},
		{name: "no rows", err: sql.ErrNoRows, category: CategoryNotFound, status: http.StatusNotFound},
		{name: "deadline", err: context.DeadlineExceeded, category: CategoryTimeout, status: http.StatusGatewayTimeout},
		{name: "cancelled", err: context.Canceled, category: CategoryTimeout, status: http.StatusGatewayTimeout},
		{name: "plain error", err: fmt.Errorf("disk full"), category: CategoryInternal, status: http.StatusInternalServerError},
		{name: "unavailable", err: NewUnavailableError("redis", fmt.Errorf("dial tcp")), category: CategoryUnavailable, status: http.StatusServiceUnavailable},
		{name: "wrapped app error", err: fmt.Errorf("save: %w", NewValidationError("bad")), category: CategoryValidation, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := ToAppError(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.category, appErr.Category)
			assert.Equal(t, tt.status, appErr.HTTPStatus)
		})
	}

	assert.Nil(t, ToAppError(nil))
}

func TestAppError_UnwrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewInternalError("query failed", cause)

	assert.ErrorIs(t, err, cause)
}

func TestErrorHandler(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/missing", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("bean x: %w", ErrNotFound))
	})
	router.GET("/invalid", func(c *gin.Context) {
		_ = c.Error(NewValidationErrorWithMap(map[string]string{"name": "must not be blank"}))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invalid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"must not be blank"`)
}

func TestRecoveryHandler(t *testing.T) {
	router := gin.New()
	router.Use(RecoveryHandler())
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"category":"internal"`)
}
