package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"irrigation_dashboard/internal/logger"
	"irrigation_dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// minimal router wiring only the middleware + an echo endpoint
func newMiddlewareOnlyRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(s, nil, logger.Nop())
	r.GET("/echo", h.requestIDMiddleware, h.accessLogMiddleware, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"requestId": c.GetString(requestIDKey)})
	})
	return r
}

func TestRequestIDMiddleware(t *testing.T) {
	cases := []struct {
		name     string
		header   string
		keepSame bool
	}{
		{name: "missing header generates id", header: ""},
		{name: "caller id is kept", header: "abc-123", keepSame: true},
		{name: "oversized id is replaced", header: strings.Repeat("x", maxRequestIDLen+1)},
	}

	r := newMiddlewareOnlyRouter(&service.Service{})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/echo", nil)
			if tc.header != "" {
				req.Header.Set(requestIDHeader, tc.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status=%d", w.Code)
			}
			got := w.Header().Get(requestIDHeader)
			if tc.keepSame {
				if got != tc.header {
					t.Fatalf("expected %q, got %q", tc.header, got)
				}
				return
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("expected generated uuid, got %q", got)
			}
			if !strings.Contains(w.Body.String(), got) {
				t.Fatalf("request id not stored in context: %s", w.Body.String())
			}
		})
	}
}
