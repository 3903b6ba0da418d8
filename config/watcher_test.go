package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), ProjectConfigFile)
	writeFile(t, path, "search:\n  results_per_source: 3\n")

	loader := NewLoader(nil, WithConfigFile(path), WithEnv(func(string) string { return "" }))
	initial, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	changes := make(chan *Config, 4)
	w, err := NewWatcher(loader, initial, func(c *Config) { changes <- c }, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	// Invalid content is ignored.
	writeFile(t, path, "search:\n  results_per_source: 99\n")
	select {
	case c := <-changes:
		t.Fatalf("unexpected reload with invalid config: %+v", c.Search)
	case <-time.After(300 * time.Millisecond):
	}
	if w.Current() != initial {
		t.Error("expected invalid change to keep the previous snapshot")
	}

	writeFile(t, path, "search:\n  results_per_source: 7\n")
	select {
	case c := <-changes:
		if c.Search.ResultsPerSource != 7 {
			t.Errorf("expected reloaded value 7, got %d", c.Search.ResultsPerSource)
		}
		if initial.Search.ResultsPerSource != 3 {
			t.Error("previous snapshot must not be mutated")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestNewWatcherWithoutProjectConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	if _, err := NewWatcher(NewLoader(nil), DefaultConfig(), nil, nil); err == nil {
		t.Error("expected error when there is no config file")
	}
}

func TestWatcherKeepsSnapshotOnParseErrorInDiscoveredFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, ProjectConfigFile)
	writeFile(t, path, "providers:\n  priority: [claude, openai]\n")

	loader := NewLoader(nil, WithEnv(func(string) string { return "" }))
	initial, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := initial.Providers.Priority; len(got) != 2 || got[0] != "claude" {
		t.Fatalf("expected discovered priority [claude openai], got %v", got)
	}

	var changes []*Config
	w, err := NewWatcher(loader, initial, func(c *Config) { changes = append(changes, c) }, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	writeFile(t, path, "providers: [unclosed\n")
	w.reload()
	if len(changes) != 0 {
		t.Fatalf("unexpected reload with unparsable config: priority=%v", changes[0].Providers.Priority)
	}
	if w.Current() != initial {
		t.Error("expected parse error to keep the previous snapshot")
	}

	writeFile(t, path, "providers:\n  priority: [gemini]\n")
	w.reload()
	if len(changes) != 1 {
		t.Fatalf("expected one reload, got %d", len(changes))
	}
	if got := changes[0].Providers.Priority; len(got) != 1 || got[0] != "gemini" {
		t.Errorf("expected priority [gemini], got %v", got)
	}
}
