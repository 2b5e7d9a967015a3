package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegistryServesRegisteredCollectors(t *testing.T) {
	reg := NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "checks_total",
		Help:      "Checks counter.",
	})
	if err := reg.Register(counter); err != nil {
		t.Fatalf("register: %v", err)
	}
	counter.Add(3)

	recorder := httptest.NewRecorder()
	reg.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	body, _ := io.ReadAll(recorder.Body)
	if !strings.Contains(string(body), "tokenvault_checks_total 3") {
		t.Fatalf("expected checks counter in output:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Fatal("expected go runtime collector output")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	opts := prometheus.CounterOpts{Namespace: Namespace, Name: "dup_total", Help: "Dup."}
	if err := reg.Register(prometheus.NewCounter(opts)); err != nil {
		t.Fatalf("register first: %v", err)
	}
	if err := reg.Register(prometheus.NewCounter(opts)); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}
