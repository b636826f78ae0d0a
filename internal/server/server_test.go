package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubAnalyzer struct {
	mu       sync.Mutex
	resume   string
	job      string
	response string
	err      error
}

func (s *stubAnalyzer) Analyze(_ context.Context, resumeText, jobDescription string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resume = resumeText
	s.job = jobDescription
	return s.response, s.err
}

type formInput struct {
	file     []byte
	filename string
	job      *string
}

func ptr(s string) *string { return &s }

func multipartRequest(t *testing.T, in formInput) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if in.file != nil {
		part, err := w.CreateFormFile(fieldResume, in.filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(in.file); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if in.job != nil {
		if err := w.WriteField(fieldJobDescription, *in.job); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, MatchPath, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()

	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestRoot(t *testing.T) {
	t.Parallel()

	srv := New(Config{}, &stubAnalyzer{}, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["message"]; got != rootMessage {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestMatchSuccess(t *testing.T) {
	t.Parallel()

	analyzer := &stubAnalyzer{response: "Match Score: 85%\nStrengths: strong Go skills"}
	srv := New(Config{}, analyzer, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, multipartRequest(t, formInput{
		file:     []byte("Jane Doe\nGo developer with five years of experience"),
		filename: "cv.txt",
		job:      ptr("  Senior Go engineer  "),
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["result"]; got != analyzer.response {
		t.Fatalf("unexpected result %q", got)
	}

	analyzer.mu.Lock()
	defer analyzer.mu.Unlock()
	if !strings.HasPrefix(analyzer.resume, "Jane Doe") {
		t.Fatalf("unexpected resume text %q", analyzer.resume)
	}
	if analyzer.job != "Senior Go engineer" {
		t.Fatalf("unexpected job description %q", analyzer.job)
	}
}

func TestMatchValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  func(t *testing.T) *http.Request
	}{
		{
			name: "missing job description",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, formInput{file: []byte("resume text"), filename: "cv.txt"})
			},
		},
		{
			name: "blank job description",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, formInput{file: []byte("resume text"), filename: "cv.txt", job: ptr("   ")})
			},
		},
		{
			name: "missing resume",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, formInput{job: ptr("Go engineer")})
			},
		},
		{
			name: "not multipart",
			req: func(*testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, MatchPath, strings.NewReader(`{"resume": "x"}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := New(Config{}, &stubAnalyzer{response: "unused"}, nil)
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, tt.req(t))

			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", rec.Code)
			}
			if decodeBody(t, rec)["error"] == "" {
				t.Fatalf("expected error message")
			}
		})
	}
}

func TestMatchFailures(t *testing.T) {
	t.Parallel()

	t.Run("unsupported file", func(t *testing.T) {
		t.Parallel()

		png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
		srv := New(Config{}, &stubAnalyzer{response: "unused"}, nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, multipartRequest(t, formInput{file: png, filename: "cv.png", job: ptr("Go engineer")}))

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if msg := decodeBody(t, rec)["error"]; !strings.Contains(msg, "unsupported file type") {
			t.Fatalf("unexpected error %q", msg)
		}
	})

	t.Run("analyzer error", func(t *testing.T) {
		t.Parallel()

		srv := New(Config{}, &stubAnalyzer{err: errors.New("quota exceeded")}, nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, multipartRequest(t, formInput{file: []byte("resume text"), filename: "cv.txt", job: ptr("Go engineer")}))

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if msg := decodeBody(t, rec)["error"]; msg != "quota exceeded" {
			t.Fatalf("unexpected error %q", msg)
		}
	})

	t.Run("payload too large", func(t *testing.T) {
		t.Parallel()

		srv := New(Config{MaxUploadMB: 1}, &stubAnalyzer{response: "unused"}, nil)
		rec := httptest.NewRecorder()
		big := bytes.Repeat([]byte("a"), 3<<20)
		srv.Router().ServeHTTP(rec, multipartRequest(t, formInput{file: big, filename: "cv.txt", job: ptr("Go engineer")}))

		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected 413, got %d", rec.Code)
		}
	})
}

func TestMatchRateLimit(t *testing.T) {
	t.Parallel()

	srv := New(Config{RateLimitPerMin: 1}, &stubAnalyzer{response: "ok"}, nil)
	router := srv.Router()

	send := func() int {
		req := multipartRequest(t, formInput{file: []byte("resume text"), filename: "cv.txt", job: ptr("Go engineer")})
		req.RemoteAddr = "192.0.2.10:4321"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send(); code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("root must not be rate limited, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	srv := New(Config{}, &stubAnalyzer{}, nil)
	req := httptest.NewRequest(http.MethodOptions, MatchPath, nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
}

func TestAccessLog(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	srv := New(Config{}, &stubAnalyzer{}, zap.New(core))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one access log entry, got %d", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusOK) {
		t.Fatalf("unexpected status field %v", fields["status"])
	}
	if fields["path"] != "/" {
		t.Fatalf("unexpected path field %v", fields["path"])
	}
	if id, _ := fields["request_id"].(string); id == "" {
		t.Fatalf("expected request id in access log")
	}
}

func TestParseOrigins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  []string
		expect []string
	}{
		{name: "empty", input: nil, expect: []string{"*"}},
		{name: "blank entries", input: []string{" ", ""}, expect: []string{"*"}},
		{name: "comma separated", input: []string{"http://a.test, http://b.test"}, expect: []string{"http://a.test", "http://b.test"}},
		{name: "list", input: []string{"http://a.test", " http://c.test "}, expect: []string{"http://a.test", "http://c.test"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ParseOrigins(tt.input); !reflect.DeepEqual(got, tt.expect) {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	srv := New(Config{Listen: "127.0.0.1:0"}, &stubAnalyzer{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatalf("server did not stop")
	}
}
