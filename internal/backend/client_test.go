package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func TestNewValidatesURL(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
	_, err = New(Options{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
	c, err := New(Options{BaseURL: "http://localhost:8000/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", c.BaseURL())
}

func TestChat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "what is steel?", body["query"])
		assert.Equal(t, true, body["useHybrid"])
		_, _ = io.WriteString(w, `{"answer":"an alloy","citations":[{"id":"c1","type":"document","content":"...","source_file":"a.pdf"}]}`)
	}, Options{UseHybrid: true})

	resp, err := c.Chat(context.Background(), "what is steel?")
	require.NoError(t, err)
	assert.Equal(t, "an alloy", resp.Answer)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "a.pdf", resp.Citations[0].SourceFile)
}

func TestTextToQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/graph/text-to-cypher", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("useLLM"))
		_, _ = io.WriteString(w, `{"cypher":"MATCH (n) RETURN n","results":[]}`)
	}, Options{UseLLM: true})

	raw, err := c.TextToQuery(context.Background(), "all nodes")
	require.NoError(t, err)
	assert.JSONEq(t, `{"cypher":"MATCH (n) RETURN n","results":[]}`, string(raw))
}

func TestGraphSource(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/graph/node-associations", r.URL.Path)
		assert.Equal(t, "n 1", r.URL.Query().Get("nodeId"))
		_, _ = io.WriteString(w, `{"results":[{"n":{"id":12345678901234567890}}]}`)
	}, Options{})

	v, err := GraphSource{Client: c}.Associations(context.Background(), "n 1")
	require.NoError(t, err)
	rows := v.(map[string]any)["results"].([]any)
	n := rows[0].(map[string]any)["n"].(map[string]any)
	assert.Equal(t, json.Number("12345678901234567890"), n["id"])
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}, Options{})

	_, err := c.Health(context.Background())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Contains(t, se.Error(), "HTTP 500: boom")
}

func TestTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, Options{Timeout: 20 * time.Millisecond})

	_, err := c.Health(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	}, Options{})
	_, err := c.Tool(context.Background(), "q", "arxiv")
	assert.ErrorContains(t, err, "decoding response")
}

func TestTool(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "neo4j_agent", body["tool"])
		_, _ = io.WriteString(w, `{"source":"neo4j","answer":"42","context":["x"]}`)
	}, Options{})
	resp, err := c.Tool(context.Background(), "q", "neo4j_agent")
	require.NoError(t, err)
	assert.Equal(t, "42", resp.Answer)
	assert.Equal(t, "neo4j", resp.Source)
}

func TestUpload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/hybrid/upload", r.URL.Path)
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "doc.txt", hdr.Filename)
		assert.Equal(t, "hello", string(data))
		_, _ = io.WriteString(w, `{"message":"ok","details":{"chunks":1}}`)
	}, Options{})

	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
	resp, err := c.Upload(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Message)

	_, err = c.Upload(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestGraphFromText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/graph/from-conversation", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "steel is an alloy of iron and carbon", body["text"])
		_, _ = io.WriteString(w, `{"html_content":"<html></html>","download_url":"data:text/html;base64,PGh0bWw+"}`)
	}, Options{})

	page, err := c.GraphFromText(context.Background(), "steel is an alloy of iron and carbon")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", page.HTMLContent)
	assert.Contains(t, page.DownloadURL, "data:text/html")

	_, err = c.GraphFromText(context.Background(), "too short")
	assert.Error(t, err)
}

func TestGraphFromFile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/graph/from-file", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("pulseOn"))
		assert.Equal(t, "3.5", r.URL.Query().Get("pulseAmp"))
		assert.Empty(t, r.URL.Query().Get("pulseSpeed"))
		_, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "notes.md", hdr.Filename)
		_, _ = io.WriteString(w, `{"html_content":"<p>graph</p>","download_url":"data:,"}`)
	}, Options{})

	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# notes"), 0o644))
	page, err := c.GraphFromFile(context.Background(), path, Pulse{Off: true, Amplitude: 3.5})
	require.NoError(t, err)
	assert.Equal(t, "<p>graph</p>", page.HTMLContent)
}

func TestDesignExperiment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/graph/design-experiment", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Steel -> Carbon -> Hardness", body["path_string"])
		assert.Equal(t, "paper.pdf", body["document_id"])
		_, _ = io.WriteString(w, `{"path_string":"Steel -> Carbon -> Hardness","prompt":"p","llm_response":"{}","parsed_json":{"hypothesis":"more carbon, harder steel"}}`)
	}, Options{})

	exp, err := c.DesignExperiment(context.Background(), []string{"Steel", "Carbon", "Hardness"}, "paper.pdf")
	require.NoError(t, err)
	assert.Equal(t, "more carbon, harder steel", exp.Parsed["hypothesis"])

	_, err = c.DesignExperiment(context.Background(), []string{"Steel"}, "paper.pdf")
	assert.Error(t, err)
}
