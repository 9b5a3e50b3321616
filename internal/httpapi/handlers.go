// Package httpapi is the HTTP transport layer: a thin gin-gonic
// translator between the JSON wire schema and
// types.ExecutionRequest/ExecutionResult, with per-language validation
// before anything touches a sandbox.
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"codesandbox/internal/errs"
	"codesandbox/internal/execsvc"
	"codesandbox/internal/pipeline"
	"codesandbox/internal/types"
)

// StandardResponse is the envelope every handler in this package
// responds with.
type StandardResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// ExecuteRequestBody is the wire shape of one execution request.
type ExecuteRequestBody struct {
	Language       string            `json:"language" binding:"required"`
	Code           string            `json:"code" binding:"required"`
	Input          string            `json:"input"`
	TimeoutSeconds int               `json:"timeout_seconds"`
	Dependencies   []DependencyBody  `json:"dependencies"`
	EnvVars        map[string]string `json:"env_vars"`
}

// DependencyBody is the wire shape of one dependency entry.
type DependencyBody struct {
	Name    string `json:"name" binding:"required"`
	Version string `json:"version"`
	Source  string `json:"source"`
}

// ExecuteResponseBody is the wire shape of one execution response.
type ExecuteResponseBody struct {
	Stdout       string           `json:"stdout"`
	Stderr       string           `json:"stderr"`
	Status       string           `json:"status"`
	ProcessStats ProcessStatsBody `json:"process_stats"`
}

// ProcessStatsBody mirrors types.ProcessStats with wire-friendly field
// names.
type ProcessStatsBody struct {
	MaxRSSBytes          int64   `json:"max_rss_bytes"`
	MinorPageFaults      int64   `json:"minor_page_faults"`
	MajorPageFaults      int64   `json:"major_page_faults"`
	BlockInputOps        int64   `json:"block_input_ops"`
	BlockOutputOps       int64   `json:"block_output_ops"`
	VoluntaryCtxSwitches int64   `json:"voluntary_ctx_switches"`
	InvolCtxSwitches     int64   `json:"involuntary_ctx_switches"`
	UserCPUSeconds       float64 `json:"user_cpu_seconds"`
	SystemCPUSeconds     float64 `json:"system_cpu_seconds"`
	WallSeconds          float64 `json:"wall_seconds"`
}

// statusWire maps the core's Status enum to the wire vocabulary
// (identical values today, kept as an explicit table rather than a bare
// cast so the two can diverge without touching callers).
var statusWire = map[types.Status]string{
	types.StatusSuccess:          "success",
	types.StatusError:            "error",
	types.StatusTimeout:          "timeout",
	types.StatusCompilationError: "compilation_error",
	types.StatusSystemError:      "system_error",
}

// ExecutionHandler translates HTTP requests into Service.Execute calls.
type ExecutionHandler struct {
	svc            *execsvc.Service
	defaultTimeout time.Duration
}

// NewExecutionHandler builds a handler bound to a running Service.
// defaultTimeout applies when a request omits timeout_seconds; <= 0
// falls back to the service-wide default.
func NewExecutionHandler(svc *execsvc.Service, defaultTimeout time.Duration) *ExecutionHandler {
	if defaultTimeout <= 0 {
		defaultTimeout = execsvc.DefaultTimeout
	}
	return &ExecutionHandler{svc: svc, defaultTimeout: defaultTimeout}
}

// Execute handles POST /v1/execute.
func (h *ExecutionHandler) Execute(c *gin.Context) {
	var body ExecuteRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, StandardResponse{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
			Code:    "INVALID_REQUEST",
		})
		return
	}

	lang, ok := types.ParseLanguage(body.Language)
	if !ok {
		c.JSON(http.StatusOK, StandardResponse{
			Success: false,
			Error:   "unsupported language: " + body.Language,
			Code:    "UNSUPPORTED_LANGUAGE",
		})
		return
	}
	if _, ok := pipeline.Get(lang); !ok {
		c.JSON(http.StatusOK, StandardResponse{
			Success: false,
			Error:   "unsupported language: " + body.Language,
			Code:    "UNSUPPORTED_LANGUAGE",
		})
		return
	}

	timeout := time.Duration(body.TimeoutSeconds) * time.Second
	if body.TimeoutSeconds <= 0 {
		timeout = h.defaultTimeout
	}

	req := types.ExecutionRequest{
		Language:     lang,
		Source:       []byte(body.Code),
		Stdin:        []byte(body.Input),
		HasStdin:     body.Input != "",
		Dependencies: toDependencies(body.Dependencies),
		Timeout:      timeout,
		Env:          body.EnvVars,
	}

	result, err := h.svc.Execute(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, StandardResponse{
			Success: false,
			Error:   err.Error(),
			Code:    string(errs.KindOf(err)),
		})
		return
	}

	c.JSON(http.StatusOK, StandardResponse{Success: true, Data: toResponseBody(result)})
}

func toDependencies(in []DependencyBody) []types.Dependency {
	if len(in) == 0 {
		return nil
	}
	out := make([]types.Dependency, 0, len(in))
	for _, d := range in {
		out = append(out, types.Dependency{Name: d.Name, Version: d.Version, Source: d.Source})
	}
	return out
}

func toResponseBody(res *types.ExecutionResult) ExecuteResponseBody {
	// Failure reasons (resource-cap details, exit classification) surface
	// through stderr so clients see evidence even when the child itself
	// wrote nothing before being terminated.
	stderr := res.Stderr
	if res.Reason != "" && res.Status != types.StatusSuccess && !strings.Contains(stderr, res.Reason) {
		if stderr != "" && !strings.HasSuffix(stderr, "\n") {
			stderr += "\n"
		}
		stderr += res.Reason
	}
	return ExecuteResponseBody{
		Stdout: res.Stdout,
		Stderr: stderr,
		Status: statusWire[res.Status],
		ProcessStats: ProcessStatsBody{
			MaxRSSBytes:          res.Stats.MaxRSSBytes,
			MinorPageFaults:      res.Stats.MinorPageFaults,
			MajorPageFaults:      res.Stats.MajorPageFaults,
			BlockInputOps:        res.Stats.BlockInputOps,
			BlockOutputOps:       res.Stats.BlockOutputOps,
			VoluntaryCtxSwitches: res.Stats.VoluntaryCtxSwitches,
			InvolCtxSwitches:     res.Stats.InvolCtxSwitches,
			UserCPUSeconds:       res.Stats.UserCPUTime.Seconds(),
			SystemCPUSeconds:     res.Stats.SystemCPUTime.Seconds(),
			WallSeconds:          res.Stats.WallTime.Seconds(),
		},
	}
}
