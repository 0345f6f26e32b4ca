package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharevault/internal/config"
	"sharevault/internal/logger"
	"sharevault/internal/metrics"
	"sharevault/internal/models"
	"sharevault/internal/pipeline"
)

type fakeAnalyser struct {
	links   []models.EnrichedLink
	err     error
	panics  bool
	gotOpts pipeline.Options
	gotBody string
}

func (f *fakeAnalyser) AnalyseFile(_ context.Context, path string, opts pipeline.Options) ([]models.EnrichedLink, error) {
	if f.panics {
		panic("boom")
	}
	f.gotOpts = opts
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f.gotBody = string(data)
	return f.links, f.err
}

func newTestServer(t *testing.T, mode string, a Analyser) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{Port: "0", Mode: mode, UploadDir: dir}
	return New(cfg, a, logger.Discard(), metrics.NewMetrics()), dir
}

func multipartBody(t *testing.T, field, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func doUpload(t *testing.T, s *Server, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestUpload_Success(t *testing.T) {
	fake := &fakeAnalyser{links: []models.EnrichedLink{{URL: "https://example.com", User: "Bob", Name: "example.com", Type: "website"}}}
	s, dir := newTestServer(t, "", fake)

	body, ct := multipartBody(t, "file", "chat.txt", "[01/02/24, 10:00] Bob: https://example.com", map[string]string{
		"expand_spotify": "false",
	})
	rec := doUpload(t, s, "/upload", body, ct)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp models.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, fake.links, resp.FileContents)
	assert.Equal(t, "[01/02/24, 10:00] Bob: https://example.com", fake.gotBody)
	assert.Equal(t, pipeline.Options{ExpandSpotify: false, ExpandYoutube: true, ExpandGeneral: true}, fake.gotOpts)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "upload is kept outside PROD")
}

func TestUpload_ProdDeletesFile(t *testing.T) {
	s, dir := newTestServer(t, config.ModeProd, &fakeAnalyser{})

	body, ct := multipartBody(t, "file", "chat.TXT", "hello", nil)
	rec := doUpload(t, s, "/analyse", body, ct)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"file_contents":[]}`, rec.Body.String())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		filename string
		analyser *fakeAnalyser
		wantCode int
		wantBody string
		content  string
	}{
		{"no file", "", "", &fakeAnalyser{}, http.StatusBadRequest, `{"error":"No file uploaded"}`, ""},
		{"wrong field", "upload", "chat.txt", &fakeAnalyser{}, http.StatusBadRequest, `{"error":"No file uploaded"}`, ""},
		{"wrong extension", "file", "chat.zip", &fakeAnalyser{}, http.StatusBadRequest, `{"error":"Only .txt files are allowed"}`, ""},
		{"analysis error", "file", "chat.txt", &fakeAnalyser{err: errors.New("disk")}, http.StatusInternalServerError, `{"error":"Internal Server Error"}`, ""},
		{"panic", "file", "chat.txt", &fakeAnalyser{panics: true}, http.StatusInternalServerError, `{"error":"Internal Server Error"}`, ""},
		{"too large", "file", "chat.txt", &fakeAnalyser{}, http.StatusRequestEntityTooLarge, `{"error":"File too large"}`, strings.Repeat("a", maxUploadBytes+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, "", tt.analyser)
			content := tt.content
			if content == "" {
				content = "content"
			}
			body, ct := multipartBody(t, tt.field, tt.filename, content, nil)

			rec := doUpload(t, s, "/upload", body, ct)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestUpload_WithPipeline(t *testing.T) {
	a := pipeline.New(pipeline.Deps{Log: logger.Discard()})
	s, _ := newTestServer(t, config.ModeProd, a)

	body, ct := multipartBody(t, "file", "chat.txt",
		"[01/02/24, 10:00] Alice: https://example.com/a\n[01/02/24, 10:01] Bob: https://example.com/a", nil)
	rec := doUpload(t, s, "/upload", body, ct)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"file_contents":[{"url":"https://example.com/a","user":"Bob","timestamp":"01/02/24, 10:01","type":"website"}]}`, rec.Body.String())
}

func TestHealthzAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, "", &fakeAnalyser{})
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	body, ct := multipartBody(t, "file", "chat.txt", "x", nil)
	doUpload(t, s, "/upload", body, ct)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sharevault_http_time_seconds")
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, "", &fakeAnalyser{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/upload", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, "", &fakeAnalyser{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/upload", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestFormBool(t *testing.T) {
	tests := map[string]bool{"": true, "true": true, "1": true, "false": false, "0": false, "garbage": true}
	for in, want := range tests {
		req := httptest.NewRequest(http.MethodPost, "/upload?expand_general="+in, nil)
		assert.Equal(t, want, formBool(req, "expand_general"), in)
	}
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t, "", &fakeAnalyser{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	cancel()
	assert.NoError(t, <-done)
}

type panicEnricher struct{}

func (panicEnricher) Name() string { return "panic" }

func (panicEnricher) Enrich(context.Context, []models.ClassifiedLink) map[string]models.Metadata {
	panic("enricher blew up")
}

func TestUpload_PanickingEnricher(t *testing.T) {
	a := pipeline.New(pipeline.Deps{Web: panicEnricher{}, Log: logger.Discard()})
	s, _ := newTestServer(t, "", a)

	body, ct := multipartBody(t, "file", "chat.txt", "[01/02/24, 10:00] Alice: https://example.com/a", nil)
	rec := doUpload(t, s, "/upload", body, ct)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"file_contents":[{"url":"https://example.com/a","user":"Alice","timestamp":"01/02/24, 10:00","type":"website"}]}`, rec.Body.String())
}

// blockingAnalyser holds a request open until released and reports the
// request context state it saw at that point.
type blockingAnalyser struct {
	started chan struct{}
	release chan struct{}
	ctxErr  chan error
	calls   atomic.Int32
}

func (b *blockingAnalyser) AnalyseFile(ctx context.Context, _ string, _ pipeline.Options) ([]models.EnrichedLink, error) {
	b.calls.Add(1)
	close(b.started)
	<-b.release
	b.ctxErr <- ctx.Err()
	return nil, nil
}

func TestServe_DrainsInFlightRequestsOnShutdown(t *testing.T) {
	a := &blockingAnalyser{started: make(chan struct{}), release: make(chan struct{}), ctxErr: make(chan error, 1)}
	s, _ := newTestServer(t, "", a)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	body, ct := multipartBody(t, "file", "chat.txt", "x", nil)
	codes := make(chan int, 1)
	go func() {
		resp, err := http.Post("http://"+ln.Addr().String()+"/upload", ct, body)
		if err != nil {
			codes <- 0
			return
		}
		resp.Body.Close()
		codes <- resp.StatusCode
	}()

	<-a.started
	cancel()
	time.Sleep(100 * time.Millisecond)
	close(a.release)

	assert.NoError(t, <-a.ctxErr)
	assert.Equal(t, http.StatusOK, <-codes)
	assert.NoError(t, <-done)
	assert.EqualValues(t, 1, a.calls.Load())
}
