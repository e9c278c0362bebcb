package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/norahq/nora/internal/auth"
	"github.com/norahq/nora/internal/models"
)

type ping struct{}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	token, err := jwtManager.Generate(&models.User{ID: "7", Username: "alice"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var seen context.Context
	next := connect.UnaryFunc(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		seen = ctx
		return connect.NewResponse(&ping{}), nil
	})
	handler := RequireAuth(jwtManager).WrapUnary(next)

	tests := []struct {
		name   string
		header string
		ok     bool
	}{
		{"valid token", "Bearer " + token, true},
		{"lowercase scheme", "bearer " + token, true},
		{"missing header", "", false},
		{"wrong scheme", "Basic " + token, false},
		{"no token", "Bearer ", false},
		{"bad token", "Bearer abc.def.ghi", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := connect.NewRequest(&ping{})
			if tt.header != "" {
				req.Header().Set("Authorization", tt.header)
			}

			_, err := handler(context.Background(), req)
			if !tt.ok {
				if connect.CodeOf(err) != connect.CodeUnauthenticated {
					t.Fatalf("Expected unauthenticated, got %v", err)
				}
				if seen != nil {
					t.Error("Handler should not run without a valid token")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected success, got %v", err)
			}
			if GetUserID(seen) != "7" || GetUsername(seen) != "alice" {
				t.Errorf("Expected claims in context, got %q / %q", GetUserID(seen), GetUsername(seen))
			}
		})
	}
}

func TestLoggingInterceptor(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	interceptor := LoggingInterceptor(logger)

	ok := interceptor.WrapUnary(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return connect.NewResponse(&ping{}), nil
	})
	failing := interceptor.WrapUnary(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("gone"))
	})

	ctx := context.WithValue(context.Background(), requestIDKey, "req-1")
	if _, err := ok(ctx, connect.NewRequest(&ping{})); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := failing(ctx, connect.NewRequest(&ping{})); connect.CodeOf(err) != connect.CodeNotFound {
		t.Fatalf("Expected the error to pass through, got %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"msg":"RPC ok"`, `"msg":"RPC error"`, `"level":"WARN"`, `"request_id":"req-1"`, `"code":"not_found"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log output to contain %s, got:\n%s", want, out)
		}
	}
}

func TestRequestID(t *testing.T) {
	var got string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetRequestID(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		if got == "" {
			t.Fatal("Expected a generated request id")
		}
		if rec.Header().Get(RequestIDHeader) != got {
			t.Errorf("Expected response header %q, got %q", got, rec.Header().Get(RequestIDHeader))
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		handler.ServeHTTP(httptest.NewRecorder(), req)
		if got != "abc-123" {
			t.Errorf("Expected abc-123, got %q", got)
		}
	})
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
	}{
		{"any origin", nil, "https://app.example", http.MethodPost, "*", http.StatusTeapot},
		{"listed origin", []string{"https://app.example"}, "https://app.example", http.MethodPost, "https://app.example", http.StatusTeapot},
		{"unlisted origin", []string{"https://app.example"}, "https://evil.example", http.MethodPost, "", http.StatusTeapot},
		{"preflight", []string{"*"}, "https://app.example", http.MethodOptions, "*", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			CORS(tt.allowed)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Expected allow origin %q, got %q", tt.wantOrigin, got)
			}
		})
	}
}
