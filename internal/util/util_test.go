package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.internal:3128", "", "localhost,.corp.example")

	tests := []struct {
		url  string
		want string
	}{
		{"http://dashscope.aliyuncs.com/v1", "http://proxy.internal:3128"},
		{"https://dashscope.aliyuncs.com/v1", "http://proxy.internal:3128"},
		{"https://api.corp.example/v1", ""},
		{"http://localhost:11434/v1", ""},
	}

	for _, tt := range tests {
		req, _ := http.NewRequest(http.MethodGet, tt.url, nil)
		got, err := proxy(req)
		if err != nil {
			t.Fatalf("proxy(%s): %v", tt.url, err)
		}
		gotStr := ""
		if got != nil {
			gotStr = got.String()
		}
		if gotStr != tt.want {
			t.Errorf("proxy(%s) = %q, want %q", tt.url, gotStr, tt.want)
		}
	}
}

func TestNewProxyFunc_HTTPSOverride(t *testing.T) {
	proxy := NewProxyFunc("http://plain:8080", "http://secure:8443", "")

	req, _ := http.NewRequest(http.MethodGet, "https://api.openai.com/v1", nil)
	got, err := proxy(req)
	if err != nil || got == nil || got.Host != "secure:8443" {
		t.Errorf("Expected https proxy, got %v (%v)", got, err)
	}
}

func TestRobotsChecker(t *testing.T) {
	var robotsFetches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsFetches.Add(1)
			_, _ = w.Write([]byte("User-agent: FactLens\nDisallow: /private/\n\nUser-agent: *\nDisallow: /\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewRobotsChecker("FactLens/0.1 (+https://github.com/ppiankov/factlens)", server.Client())
	ctx := context.Background()

	if !checker.IsAllowed(ctx, server.URL+"/public/page") {
		t.Error("Expected /public/page to be allowed")
	}
	if checker.IsAllowed(ctx, server.URL+"/private/page") {
		t.Error("Expected /private/page to be disallowed")
	}
	if robotsFetches.Load() != 1 {
		t.Errorf("Expected robots.txt to be fetched once, got %d", robotsFetches.Load())
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := NewRobotsChecker("FactLens", server.Client())
	if !checker.IsAllowed(context.Background(), server.URL+"/anything") {
		t.Error("Expected missing robots.txt to allow everything")
	}
}
