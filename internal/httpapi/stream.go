// Streaming execute endpoint: the interactive counterpart to Execute.
// One websocket connection per request, JSON-framed messages written as
// events arrive, wired to sandbox.Handle.ExecutePTY for incremental
// output delivery.
package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"codesandbox/internal/config"
	"codesandbox/internal/errs"
	"codesandbox/internal/execsvc"
	"codesandbox/internal/logging"
	"codesandbox/internal/pipeline"
	"codesandbox/internal/sandbox"
	"codesandbox/internal/types"
)

// streamFrame is the wire shape for one outbound websocket message. Kind
// is "stdout" for incremental output or "result" for the terminal
// summary that ends the connection.
type streamFrame struct {
	Kind   string               `json:"kind"`
	Data   string               `json:"data,omitempty"`
	Result *ExecuteResponseBody `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// inboundFrame is the wire shape for one inbound client message: either
// "input" (Data carries raw bytes to write into the pty) or "resize"
// (Rows/Cols carry the new terminal size) — the two kinds
// sandbox.PTYMessage understands.
type inboundFrame struct {
	Kind string `json:"kind"`
	Data string `json:"data,omitempty"`
	Rows uint16 `json:"rows,omitempty"`
	Cols uint16 `json:"cols,omitempty"`
}

// StreamHandler upgrades /v1/execute/stream to a websocket and runs the
// request through the process backend's PTY path so output streams to
// the client as the child produces it, rather than buffering until
// completion like the plain Execute handler.
//
// Streaming always uses the process backend: ExecutePTY is defined on
// the concrete *sandbox.Handle the rlimit trampoline builds, not on the
// generic sandbox.Supervisee interface the Docker backend also
// satisfies, so this handler constructs its sandbox with sandbox.New
// directly even when the configured isolation backend is "docker".
type StreamHandler struct {
	svc      *execsvc.Service
	cfg      *config.Config
	upgrader websocket.Upgrader
}

// NewStreamHandler builds a handler bound to a running Service.
func NewStreamHandler(svc *execsvc.Service, cfg *config.Config) *StreamHandler {
	return &StreamHandler{
		svc: svc,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Stream handles GET /v1/execute/stream. The request body is carried as
// a base64-encoded "code" query parameter, since a GET upgrade request
// has no body.
func (h *StreamHandler) Stream(c *gin.Context) {
	lang, ok := types.ParseLanguage(c.Query("language"))
	if !ok {
		c.JSON(http.StatusBadRequest, StandardResponse{Success: false, Error: "unsupported language", Code: "UNSUPPORTED_LANGUAGE"})
		return
	}
	p, ok := pipeline.Get(lang)
	if !ok {
		c.JSON(http.StatusBadRequest, StandardResponse{Success: false, Error: "unsupported language", Code: "UNSUPPORTED_LANGUAGE"})
		return
	}
	source, err := base64.StdEncoding.DecodeString(c.Query("code"))
	if err != nil {
		c.JSON(http.StatusBadRequest, StandardResponse{Success: false, Error: "code must be base64-encoded", Code: "INVALID_REQUEST"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.S().Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Streaming runs count against the same admission bound as plain
	// executes: one permit, one sandbox.
	ctx := c.Request.Context()
	if err := h.svc.Acquire(ctx); err != nil {
		h.sendError(conn, err)
		return
	}
	defer h.svc.Release()

	sb, err := sandbox.New(h.cfg.SandboxBaseDir, types.DefaultResourceLimits())
	if err != nil {
		h.sendError(conn, err)
		return
	}
	defer sb.Close()

	if err := p.EnsureDirectories(sb.RootPath()); err != nil {
		h.sendError(conn, err)
		return
	}
	if err := p.ScaffoldProject(ctx, sb.RootPath()); err != nil {
		h.sendError(conn, err)
		return
	}
	if err := p.InstallDependencies(ctx, sb.RootPath(), nil); err != nil {
		h.sendError(conn, err)
		return
	}
	if err := p.Compile(ctx, sb.RootPath(), source); err != nil {
		h.sendError(conn, err)
		return
	}

	command, args, env := p.Run(sb.RootPath())
	timeout := 30 * time.Second
	if v := c.Query("timeout_seconds"); v != "" {
		if d, perr := time.ParseDuration(v + "s"); perr == nil {
			timeout = d
		}
	}

	input := make(chan sandbox.PTYMessage)
	stopReader := make(chan struct{})
	defer close(stopReader)
	go h.readInbound(conn, input, stopReader)

	res, err := sb.ExecutePTY(ctx, command, args, env, timeout, input, func(chunk []byte) {
		_ = conn.WriteJSON(streamFrame{Kind: "stdout", Data: string(chunk)})
	})
	if err != nil {
		h.sendError(conn, err)
		return
	}

	body := toResponseBody(&types.ExecutionResult{Status: res.Status, Reason: res.Reason, Stats: res.Stats})
	_ = conn.WriteJSON(streamFrame{Kind: "result", Result: &body})
}

// readInbound is the client-to-server half of the websocket, run on its
// own goroutine for the lifetime of one Stream call: it decodes each
// incoming JSON frame into a sandbox.PTYMessage and forwards it on
// input. It exits when the connection errs, the peer closes, or stop
// fires because ExecutePTY has already returned — without stop, a send
// on input after the pty's write-loop goroutine has exited would block
// forever.
func (h *StreamHandler) readInbound(conn *websocket.Conn, input chan<- sandbox.PTYMessage, stop <-chan struct{}) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f inboundFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			continue
		}
		var msg sandbox.PTYMessage
		switch f.Kind {
		case "resize":
			msg = sandbox.PTYMessage{Resize: true, Rows: f.Rows, Cols: f.Cols}
		case "input":
			msg = sandbox.PTYMessage{Data: []byte(f.Data)}
		default:
			continue
		}
		select {
		case input <- msg:
		case <-stop:
			return
		}
	}
}

func (h *StreamHandler) sendError(conn *websocket.Conn, err error) {
	_ = conn.WriteJSON(streamFrame{Kind: "result", Error: err.Error(), Result: &ExecuteResponseBody{
		Status: statusWire[errs.KindOf(err).Status()],
	}})
}
