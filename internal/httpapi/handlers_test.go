package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codesandbox/internal/execsvc"
	"codesandbox/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestExecuteHandlerRejectsUnsupportedLanguage(t *testing.T) {
	svc := execsvc.New(2)
	h := NewExecutionHandler(svc, 0)

	r := gin.New()
	r.POST("/v1/execute", h.Execute)

	body, _ := json.Marshal(ExecuteRequestBody{Language: "cobol", Code: "IDENTIFICATION DIVISION."})
	req := httptest.NewRequest(http.MethodPost, "/v1/execute", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp StandardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "UNSUPPORTED_LANGUAGE", resp.Code)
}

func TestExecuteHandlerRejectsMalformedBody(t *testing.T) {
	svc := execsvc.New(2)
	h := NewExecutionHandler(svc, 0)

	r := gin.New()
	r.POST("/v1/execute", h.Execute)

	req := httptest.NewRequest(http.MethodPost, "/v1/execute", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToResponseBodyMapsStatsAndStatus(t *testing.T) {
	result := &types.ExecutionResult{
		Status: types.StatusSuccess,
		Stdout: "hi",
	}
	body := toResponseBody(result)
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "hi", body.Stdout)
}

func TestToDependenciesHandlesEmptyInput(t *testing.T) {
	assert.Nil(t, toDependencies(nil))
	deps := toDependencies([]DependencyBody{{Name: "requests", Version: "2.31.0"}})
	require.Len(t, deps, 1)
	assert.Equal(t, "requests", deps[0].Name)
}
