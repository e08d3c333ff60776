package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func errorServer(t *testing.T, status int, message string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientMapsStatusCodesToSentinelErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "unauthenticated", status: http.StatusUnauthorized, want: ErrUnauthenticated},
		{name: "not found", status: http.StatusNotFound, want: ErrNotFound},
		{name: "conflict", status: http.StatusConflict, want: ErrConflict},
		{name: "bad payload", status: http.StatusBadRequest, want: ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := errorServer(t, tt.status, "nope")
			c, err := New(srv.URL)
			if err != nil {
				t.Fatalf("new client: %v", err)
			}
			_, err = c.GetCalendar(context.Background(), "some-id")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestClientSurfacesUnexpectedStatus(t *testing.T) {
	srv := errorServer(t, http.StatusBadGateway, "upstream sad")
	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.GetCalendar(context.Background(), "some-id")
	if err == nil {
		t.Fatalf("expected an error for status 502")
	}
}
