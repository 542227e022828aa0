package cli

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"

	apperrors "github.com/trackstats/trackstats/pkg/errors"
)

func TestHealthEndpoint(t *testing.T) {
	router := newRouter(nil, log.New(io.Discard))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q, want \"ok\"", rec.Body.String())
	}
}

func TestListRejectsBadLimit(t *testing.T) {
	router := newRouter(nil, log.New(io.Discard))

	req := httptest.NewRequest(http.MethodGet, "/api/runs?limit=abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestListRejectsBadSource(t *testing.T) {
	router := newRouter(nil, log.New(io.Discard))

	req := httptest.NewRequest(http.MethodGet, "/api/runs?source=Not%20A%20Source", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "missing run",
			err:  apperrors.New(apperrors.ErrCodeRunNotFound, "run not found"),
			want: http.StatusNotFound,
		},
		{
			name: "internal failure",
			err:  apperrors.New(apperrors.ErrCodeInternal, "boom"),
			want: http.StatusInternalServerError,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
