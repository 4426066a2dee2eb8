// Package backend is the HTTP client for the retrieval service: chat,
// text-to-query translation, node associations, document upload, graph page
// generation, experiment design and tools.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/msalah0e/kgx/internal/logger"
)

const tracerName = "github.com/msalah0e/kgx/internal/backend"

// Tools accepted by Tool.
var Tools = []string{"web", "arxiv", "neo4j_agent"}

// Citation is a retrieval source attached to a chat answer.
type Citation struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Content    string         `json:"content"`
	SourceFile string         `json:"source_file"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ChatResponse is the answer to a chat query.
type ChatResponse struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// UploadResponse is returned after document ingestion.
type UploadResponse struct {
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ToolResponse is the answer from a single tool.
type ToolResponse struct {
	Source  string `json:"source"`
	Answer  string `json:"answer"`
	Context any    `json:"context,omitempty"`
}

// GraphPage is a standalone graph page generated by the service.
type GraphPage struct {
	HTMLContent string `json:"html_content"`
	DownloadURL string `json:"download_url"`
}

// Pulse tunes the node animation of a generated graph page. Zero amplitude
// or speed leaves the service default.
type Pulse struct {
	Off       bool
	Amplitude float64
	Speed     float64
}

func (p Pulse) values() url.Values {
	q := url.Values{"pulseOn": {strconv.FormatBool(!p.Off)}}
	if p.Amplitude > 0 {
		q.Set("pulseAmp", strconv.FormatFloat(p.Amplitude, 'g', -1, 64))
	}
	if p.Speed > 0 {
		q.Set("pulseSpeed", strconv.FormatFloat(p.Speed, 'g', -1, 64))
	}
	return q
}

// Experiment is a designed experiment for a graph path.
type Experiment struct {
	PathString  string         `json:"path_string"`
	Prompt      string         `json:"prompt"`
	LLMResponse string         `json:"llm_response"`
	Parsed      map[string]any `json:"parsed_json"`
}

// PathString joins node names the way the service expects paths.
func PathString(names []string) string {
	return strings.Join(names, " -> ")
}

// MinGraphTextLen is the shortest text the service accepts for page
// generation.
const MinGraphTextLen = 20

// Status is the service root response.
type Status struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Code, body)
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UseHybrid bool
	UseLLM    bool
	Logger    *logger.Logger
	// HTTPClient overrides the transport; Timeout still applies per request.
	HTTPClient *http.Client
}

// Client talks to one backend.
type Client struct {
	base   *url.URL
	http   *http.Client
	opts   Options
	log    *logger.Logger
	tracer trace.Tracer
}

// New validates the base URL and returns a client.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("backend: base URL is empty")
	}
	u, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend: parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend: unsupported scheme %q", u.Scheme)
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		base:   u,
		http:   hc,
		opts:   opts,
		log:    logger.OrNop(opts.Logger).With("component", "backend"),
		tracer: otel.Tracer(tracerName),
	}, nil
}

// BaseURL returns the configured service address.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Chat asks a question and returns the answer with citations.
func (c *Client) Chat(ctx context.Context, query string) (*ChatResponse, error) {
	var out ChatResponse
	body := map[string]any{"query": query, "useHybrid": c.opts.UseHybrid}
	if err := c.doJSON(ctx, http.MethodPost, "/api/chat", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TextToQuery translates text to a graph query, runs it and returns the
// raw response body.
func (c *Client) TextToQuery(ctx context.Context, text string) (json.RawMessage, error) {
	q := url.Values{"useLLM": {strconv.FormatBool(c.opts.UseLLM)}}
	var out json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, "/api/graph/text-to-cypher", q, map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NodeAssociations returns the raw association payload for a node.
func (c *Client) NodeAssociations(ctx context.Context, nodeID string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/api/graph/node-associations", url.Values{"nodeId": {nodeID}}, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Tool runs a query against a single tool.
func (c *Client) Tool(ctx context.Context, query, tool string) (*ToolResponse, error) {
	var out ToolResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/tools/query", nil, map[string]string{"query": query, "tool": tool}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GraphFromText builds a standalone graph page from free text.
func (c *Client) GraphFromText(ctx context.Context, text string) (*GraphPage, error) {
	if len(strings.TrimSpace(text)) < MinGraphTextLen {
		return nil, fmt.Errorf("graph text must be at least %d characters", MinGraphTextLen)
	}
	var out GraphPage
	if err := c.doJSON(ctx, http.MethodPost, "/api/graph/from-conversation", nil, map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GraphFromFile builds a standalone graph page from a document.
func (c *Client) GraphFromFile(ctx context.Context, path string, pulse Pulse) (*GraphPage, error) {
	var out GraphPage
	if err := c.postFile(ctx, "/api/graph/from-file", pulse.values(), path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DesignExperiment asks for an experiment exploring path, a chain of node
// names, grounded on the document documentID.
func (c *Client) DesignExperiment(ctx context.Context, path []string, documentID string) (*Experiment, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("experiment path needs at least two nodes")
	}
	body := map[string]string{"path_string": PathString(path), "document_id": documentID}
	var out Experiment
	if err := c.doJSON(ctx, http.MethodPost, "/api/graph/design-experiment", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health fetches the service root.
func (c *Client) Health(ctx context.Context) (*Status, error) {
	var out Status
	if err := c.doJSON(ctx, http.MethodGet, "/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Upload sends one file for ingestion as multipart form field "file".
func (c *Client) Upload(ctx context.Context, path string) (*UploadResponse, error) {
	var out UploadResponse
	if err := c.postFile(ctx, "/api/hybrid/upload", nil, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) postFile(ctx context.Context, endpoint string, q url.Values, path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, endpoint, q, &buf, mw.FormDataContentType(), out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, q url.Values, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, q, body, contentType, out)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body io.Reader, contentType string, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, method+" "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.full", u.String()),
	)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: reading body: %w", method, path, err)
	}
	c.log.Debug("backend request", "method", method, "path", path, "status", resp.StatusCode, "bytes", len(data), "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(data)}
	}
	if out == nil {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", method, path, err)
	}
	return nil
}
