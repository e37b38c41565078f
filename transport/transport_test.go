package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tr := New(Config{MaxRetries: 1, TimeoutSeconds: 5}, nil)
	body, err := tr.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if body != `{"ok":true}` {
		t.Fatalf("Get() = %q, want %q", body, `{"ok":true}`)
	}
}

func TestGetSurfacesClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"msg":"bad request"}}`))
	}))
	defer srv.Close()

	tr := New(Config{MaxRetries: 1, TimeoutSeconds: 5}, nil)
	_, err := tr.Get(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 400 response")
	}

	var te *Error
	if ok := asError(err, &te); !ok {
		t.Fatalf("error %v is not *transport.Error", err)
	}
	if te.Status != http.StatusBadRequest {
		t.Fatalf("Status = %d, want %d", te.Status, http.StatusBadRequest)
	}
	if len(te.Body) == 0 {
		t.Fatal("expected Body to carry the raw response")
	}
}

func TestGetRetriesOn503(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	tr := New(Config{MaxRetries: 3, TimeoutSeconds: 5}, nil)
	body, err := tr.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if body != "ok" {
		t.Fatalf("Get() = %q, want %q", body, "ok")
	}
	if attempts < 2 {
		t.Fatalf("expected at least one retry, got %d attempts", attempts)
	}
	if tr.LastRetryCount() < 1 {
		t.Fatalf("LastRetryCount() = %d, want >= 1", tr.LastRetryCount())
	}
}

func asError(err error, target **Error) bool {
	te, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = te
	return true
}
