package source

import (
	"context"
	"testing"
	"time"

	"quoteflow/internal/model"
)

type stubSource struct {
	key string
}

func (s *stubSource) Key() string { return s.key }

func (s *stubSource) Info() model.SourceInfo {
	return model.SourceInfo{Name: s.key, Key: s.key, Version: 1}
}

func (s *stubSource) Config() model.SourceConfig {
	return model.SourceConfig{DataRefreshInterval: 24 * time.Hour}
}

func (s *stubSource) Tickers(context.Context) ([]model.Ticker, error) { return nil, nil }

func (s *stubSource) Quotes(context.Context, []string, *model.Date, *model.Date) ([]model.Quote, error) {
	return nil, nil
}

func TestRegistryOrder(t *testing.T) {
	r, err := NewRegistry(&stubSource{key: "beta"}, &stubSource{key: "alpha"})
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	all := r.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(all))
	}
	// Registration order, not alphabetical.
	if all[0].Key() != "beta" || all[1].Key() != "alpha" {
		t.Errorf("unexpected order: %s, %s", all[0].Key(), all[1].Key())
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	if _, err := NewRegistry(&stubSource{key: "alpha"}, &stubSource{key: "alpha"}); err == nil {
		t.Fatal("expected error for duplicate key")
	}
}

func TestRegistryRejectsEmptyKey(t *testing.T) {
	if _, err := NewRegistry(&stubSource{}); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestRegistrySelect(t *testing.T) {
	r, err := NewRegistry(&stubSource{key: "alpha"}, &stubSource{key: "beta"}, &stubSource{key: "gamma"})
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	selected := r.Select([]string{"gamma", "alpha"})
	if len(selected) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(selected))
	}
	if selected[0].Key() != "alpha" || selected[1].Key() != "gamma" {
		t.Errorf("expected registration order, got %s, %s", selected[0].Key(), selected[1].Key())
	}

	if got := r.Select(nil); len(got) != 3 {
		t.Errorf("expected all sources for nil keys, got %d", len(got))
	}

	if got := r.Select([]string{"unknown"}); len(got) != 0 {
		t.Errorf("expected no sources for unknown key, got %d", len(got))
	}

	if r.Get("beta") == nil {
		t.Error("expected Get to find a registered source")
	}
	if r.Get("unknown") != nil {
		t.Error("expected nil for unknown key")
	}
}
