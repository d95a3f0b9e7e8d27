package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseFlagsDefaults(t *testing.T) {
	cfg, err := parseFlags(nil, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.addr != ":8080" || cfg.metrics != metricsPrometheus || cfg.reapTTL != 30*time.Minute {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.logLevel != slog.LevelInfo {
		t.Fatalf("unexpected log level %v", cfg.logLevel)
	}
}

func TestParseFlagsRejectsBadInput(t *testing.T) {
	cases := map[string][]string{
		"log level":    {"-log-level", "loud"},
		"metrics":      {"-metrics", "statsd"},
		"ttl":          {"-reap-ttl", "0s"},
		"interval":     {"-reap-interval", "-1s"},
		"unknown flag": {"-verbose"},
		"positional":   {"serve"},
		"bad duration": {"-reap-ttl", "soon"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			var stderr bytes.Buffer
			if _, err := parseFlags(args, &stderr); err == nil {
				t.Fatalf("expected error for %v", args)
			}
			if stderr.Len() == 0 {
				t.Fatalf("expected a usage message")
			}
		})
	}
}

func TestCLIExitCodes(t *testing.T) {
	if code := cli([]string{"-h"}, io.Discard, io.Discard); code != 0 {
		t.Fatalf("help: expected 0, got %d", code)
	}
	if code := cli([]string{"-metrics", "nope"}, io.Discard, io.Discard); code != 2 {
		t.Fatalf("bad flag: expected 2, got %d", code)
	}
	t.Setenv("THREADLAB_STORAGE_DRIVER", "bogus")
	var stderr bytes.Buffer
	if code := cli([]string{"-addr", "127.0.0.1:0"}, io.Discard, &stderr); code != 1 {
		t.Fatalf("bad driver: expected 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "unknown storage driver") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}

func TestRunServesAPIAndMetrics(t *testing.T) {
	t.Setenv("THREADLAB_STORAGE_DRIVER", "memory")
	t.Setenv("THREADLAB_BLOB_DRIVER", "memory")
	traceFile := filepath.Join(t.TempDir(), "trace.jsonl")
	cfg := config{
		addr:         "127.0.0.1:0",
		reapTTL:      time.Minute,
		reapInterval: time.Minute,
		metrics:      metricsPrometheus,
		traceFile:    traceFile,
	}
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, logger, func(addr string) { addrCh <- addr }) }()

	var base string
	select {
	case addr := <-addrCh:
		base = "http://" + addr
	case err := <-done:
		t.Fatalf("run exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not start")
	}

	resp, err := http.Post(base+"/api/v1/sessions", "application/json", nil)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	var snap struct {
		ID string `json:"id"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&snap)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || snap.ID == "" {
		t.Fatalf("unexpected open response %d %+v", resp.StatusCode, snap)
	}

	resp, err = http.Get(base + "/api/v1/samples/samples/lifecycle/running.txt")
	if err != nil {
		t.Fatalf("get sample: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sample status %d", resp.StatusCode)
	}

	resp, err = http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	for _, want := range []string{"threadlab_sessions_live 1", `threadlab_operations_total{operation="open_session",result="success"} 1`} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("run did not shut down")
	}

	trace, err := os.ReadFile(traceFile)
	if err != nil || !strings.Contains(string(trace), `"operation":"open_session"`) {
		t.Fatalf("trace file missing span: %v %s", err, trace)
	}
	if !strings.Contains(logs.String(), "service shut down") {
		t.Fatalf("expected shutdown log, got %s", logs.String())
	}
}
