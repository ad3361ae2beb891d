package brain

import (
	"context"
	"errors"
	"testing"
)

type fakeProvider struct {
	name      string
	available bool
	calls     int
}

func (f *fakeProvider) Name() string    { return f.name }
func (f *fakeProvider) Available() bool { return f.available }

func (f *fakeProvider) Generate(ctx context.Context, req Request) (Response, error) {
	f.calls++
	return Response{Content: "from " + f.name, Model: f.name}, nil
}

func TestManagerPrefersConfiguredProvider(t *testing.T) {
	claude := &fakeProvider{name: "claude", available: true}
	openai := &fakeProvider{name: "openai", available: true}

	mgr := NewManager()
	mgr.Add(claude)
	mgr.Add(openai)
	mgr.SetPreferred("openai")

	resp, err := mgr.Generate(context.Background(), Request{UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Content != "from openai" {
		t.Errorf("preferred provider not used: %q", resp.Content)
	}
	if claude.calls != 0 {
		t.Errorf("non-preferred provider was called %d times", claude.calls)
	}
}

func TestManagerFallsBackWhenPreferredUnavailable(t *testing.T) {
	claude := &fakeProvider{name: "claude", available: true}
	openai := &fakeProvider{name: "openai", available: false}

	mgr := NewManager()
	mgr.Add(claude)
	mgr.Add(openai)
	mgr.SetPreferred("openai")

	resp, err := mgr.Generate(context.Background(), Request{UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Content != "from claude" {
		t.Errorf("expected fallback to claude, got %q", resp.Content)
	}
}

func TestManagerNoProviders(t *testing.T) {
	mgr := NewManager()
	mgr.Add(&fakeProvider{name: "claude", available: false})

	if mgr.Available() {
		t.Error("manager with no usable providers should be unavailable")
	}
	if _, err := mgr.Generate(context.Background(), Request{UserPrompt: "hi"}); !errors.Is(err, ErrNoProvider) {
		t.Errorf("expected ErrNoProvider, got %v", err)
	}
}
