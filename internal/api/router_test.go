package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubWS struct{ hits int }

func (s *stubWS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.hits++
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func TestHealthEndpoint(t *testing.T) {
	r := NewRouter(RouterConfig{WS: &stubWS{}, DisableLogging: true})
	ts := httptest.NewServer(r)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, want 200", resp.StatusCode)
	}
}

func TestWSRouteDelegatesToHandler(t *testing.T) {
	ws := &stubWS{}
	r := NewRouter(RouterConfig{WS: ws, DisableLogging: true})
	ts := httptest.NewServer(r)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/ws")
	if err != nil {
		t.Fatalf("GET /ws: %v", err)
	}
	defer resp.Body.Close()
	if ws.hits != 1 {
		t.Fatalf("expected the ws handler to be invoked once, got %d", ws.hits)
	}
}
