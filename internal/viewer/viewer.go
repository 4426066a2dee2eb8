// Package viewer serves the interactive graph page and the JSON API that
// feeds pointer events into an exploration session.
package viewer

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/msalah0e/kgx/internal/backend"
	"github.com/msalah0e/kgx/internal/explorer"
	"github.com/msalah0e/kgx/internal/graph"
	"github.com/msalah0e/kgx/internal/layout"
	"github.com/msalah0e/kgx/internal/logger"
	"github.com/msalah0e/kgx/internal/render"
)

// Chatter answers free-text questions. *backend.Client satisfies it.
type Chatter interface {
	Chat(ctx context.Context, query string) (*backend.ChatResponse, error)
}

// Options configures a Server.
type Options struct {
	Session      *explorer.Session
	Chat         Chatter
	Title        string
	Layout       layout.Params
	AllowOrigins []string
	Logger       *logger.Logger
}

// Server is the viewer HTTP surface over one session.
type Server struct {
	sess   *explorer.Session
	chat   Chatter
	page   []byte
	log    *logger.Logger
	engine *gin.Engine

	// the live chat; a newer one cancels it
	chatMu     sync.Mutex
	chatToken  string
	chatCancel context.CancelFunc
}

// APIError is the error envelope.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

type queryRequest struct {
	Text string `json:"text"`
}

type dragRequest struct {
	Phase string  `json:"phase"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type viewportRequest struct {
	DX   float64 `json:"dx"`
	DY   float64 `json:"dy"`
	Zoom float64 `json:"zoom"`
	CX   float64 `json:"cx"`
	CY   float64 `json:"cy"`
}

type filterRequest struct {
	Expr string `json:"expr"`
}

type chatRequest struct {
	Query string `json:"query"`
}

// New builds the router.
func New(opts Options) *Server {
	title := opts.Title
	if title == "" {
		title = "kgx"
	}
	s := &Server{
		sess: opts.Session,
		chat: opts.Chat,
		page: []byte(render.LivePage(title, opts.Layout)),
		log:  logger.OrNop(opts.Logger),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("kgx-viewer"))
	r.Use(corsMiddleware(opts.AllowOrigins))
	r.Use(s.requestLog())

	r.GET("/", s.index)
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := r.Group("/api")
	{
		api.GET("/snapshot", s.snapshot)
		api.POST("/query", s.query)
		api.POST("/nodes/:id/click", s.click)
		api.POST("/nodes/:id/drag", s.drag)
		api.POST("/background", s.background)
		api.POST("/viewport", s.viewport)
		api.POST("/filter", s.filter)
		api.POST("/chat", s.chatHandler)
	}
	s.engine = r
	return s
}

// Handler returns the gin engine.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("viewer listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "X-Requested-With"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/api/snapshot" {
			return
		}
		s.log.Debug("viewer request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, errorEnvelope{Error: APIError{Message: msg, Code: code}})
}

func (s *Server) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", s.page)
}

func (s *Server) snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, s.sess.Snapshot())
}

func (s *Server) query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		respondError(c, http.StatusBadRequest, "empty_query", errors.New("query text is required"))
		return
	}

	err := s.sess.Query(c.Request.Context(), text)
	switch {
	case err == nil, errors.Is(err, explorer.ErrNothingFound):
		c.JSON(http.StatusOK, s.sess.Snapshot())
	case errors.Is(err, explorer.ErrSuperseded):
		respondError(c, http.StatusConflict, "superseded", err)
	case errors.Is(err, explorer.ErrClosed):
		respondError(c, http.StatusServiceUnavailable, "closed", err)
	default:
		s.log.Warn("viewer query failed", "text", text, "error", err)
		respondError(c, http.StatusBadGateway, "query_failed", err)
	}
}

func (s *Server) click(c *gin.Context) {
	id := c.Param("id")
	if !s.sess.Click(id) {
		respondError(c, http.StatusNotFound, "unknown_node", explorer.ErrUnknownNode)
		return
	}
	c.JSON(http.StatusAccepted, s.sess.Snapshot())
}

func (s *Server) background(c *gin.Context) {
	s.sess.Background()
	c.JSON(http.StatusOK, s.sess.Snapshot())
}

func (s *Server) drag(c *gin.Context) {
	var req dragRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	id := c.Param("id")
	sim := s.sess.Simulation()

	var ok bool
	switch req.Phase {
	case "start":
		ok = sim.DragStart(id)
	case "move":
		ok = sim.DragMove(id, graph.Point{X: req.X, Y: req.Y})
	case "end":
		ok = sim.DragEnd(id)
	default:
		respondError(c, http.StatusBadRequest, "bad_phase", errors.New("phase must be start, move or end"))
		return
	}
	if !ok {
		respondError(c, http.StatusNotFound, "unknown_node", explorer.ErrUnknownNode)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) viewport(c *gin.Context) {
	var req viewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	v := s.sess.Viewport()
	t := v.Transform()
	if req.DX != 0 || req.DY != 0 {
		t = v.Pan(req.DX, req.DY)
	}
	if req.Zoom > 0 && req.Zoom != 1 {
		t = v.ZoomAt(graph.Point{X: req.CX, Y: req.CY}, req.Zoom)
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) filter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := s.sess.SetFilter(req.Expr); err != nil {
		respondError(c, http.StatusBadRequest, "bad_filter", err)
		return
	}
	c.JSON(http.StatusOK, s.sess.Snapshot())
}

var errChatSuperseded = errors.New("chat superseded by a newer question")

func (s *Server) chatHandler(c *gin.Context) {
	if s.chat == nil {
		respondError(c, http.StatusNotImplemented, "no_backend", errors.New("chat backend not configured"))
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		respondError(c, http.StatusBadRequest, "bad_request", errors.New("query is required"))
		return
	}

	token := uuid.NewString()
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	s.chatMu.Lock()
	if s.chatCancel != nil {
		s.chatCancel()
	}
	s.chatToken, s.chatCancel = token, cancel
	s.chatMu.Unlock()

	resp, err := s.chat.Chat(ctx, req.Query)

	s.chatMu.Lock()
	stale := s.chatToken != token
	if !stale {
		s.chatToken, s.chatCancel = "", nil
	}
	s.chatMu.Unlock()
	if stale {
		respondError(c, http.StatusConflict, "superseded", errChatSuperseded)
		return
	}
	if err != nil {
		var se *backend.StatusError
		if errors.As(err, &se) {
			respondError(c, http.StatusBadGateway, "backend_status", err)
			return
		}
		respondError(c, http.StatusBadGateway, "chat_failed", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
