package reffilter

import (
	"context"
	"errors"
	"testing"

	"github.com/avbell/easel/internal/brain"
	"github.com/avbell/easel/internal/store"
)

// fakeEval is a scripted Evaluator.
type fakeEval struct {
	answer    string
	err       error
	available bool
	calls     int
}

func (f *fakeEval) Available() bool { return f.available }

func (f *fakeEval) Generate(ctx context.Context, req brain.Request) (brain.Response, error) {
	f.calls++
	if f.err != nil {
		return brain.Response{}, f.err
	}
	return brain.Response{Content: f.answer, Model: "fake"}, nil
}

func img(id, desc string) store.CuratedImage {
	return store.CuratedImage{ProviderID: id, Description: desc, URL: "https://example.com/x.jpg"}
}

func TestRejectsVocabulary(t *testing.T) {
	f := New(nil)
	ctx := context.Background()

	rejects := []string{
		"Company logo on white",
		"App ICON design",
		"screenshot of a dashboard",
		"bar graph of sales",
		"pie chart visualization",
		"flow diagram",
		"web banner template",
		"car advertisement poster",
	}
	for _, desc := range rejects {
		if f.Accept(ctx, "hands", img("pexels-1", desc)) {
			t.Errorf("description %q should be rejected", desc)
		}
	}
}

func TestAcceptsEmptyDescription(t *testing.T) {
	f := New(nil)

	if !f.Accept(context.Background(), "hands", img("pexels-1", "")) {
		t.Error("empty description must be accepted")
	}
	if !f.Accept(context.Background(), "hands", img("pexels-2", "   ")) {
		t.Error("whitespace description must be accepted")
	}
}

func TestAcceptsOrdinaryPhotos(t *testing.T) {
	f := New(nil)

	if !f.Accept(context.Background(), "hands", img("pexels-1", "weathered hands kneading dough")) {
		t.Error("plain photo description should be accepted")
	}
}

func TestEvaluatorVerdicts(t *testing.T) {
	eval := &fakeEval{available: true, answer: "NO"}
	f := New(eval)

	if f.Accept(context.Background(), "hands", img("pexels-1", "close up of feet")) {
		t.Error("NO verdict should reject")
	}

	eval2 := &fakeEval{available: true, answer: "YES"}
	f2 := New(eval2)
	if !f2.Accept(context.Background(), "hands", img("pexels-1", "hands on piano keys")) {
		t.Error("YES verdict should accept")
	}
}

func TestEvaluatorFailsOpen(t *testing.T) {
	eval := &fakeEval{available: true, err: errors.New("api down")}
	f := New(eval)

	if !f.Accept(context.Background(), "hands", img("pexels-1", "hands on piano keys")) {
		t.Error("evaluator failure must accept")
	}
}

func TestEvaluatorVerdictsCached(t *testing.T) {
	eval := &fakeEval{available: true, answer: "YES"}
	f := New(eval)
	candidate := img("pexels-1", "hands on piano keys")

	f.Accept(context.Background(), "hands", candidate)
	f.Accept(context.Background(), "hands", candidate)
	if eval.calls != 1 {
		t.Errorf("expected 1 evaluation call, got %d", eval.calls)
	}

	// A different theme is a different judgment
	f.Accept(context.Background(), "portraits", candidate)
	if eval.calls != 2 {
		t.Errorf("expected per-theme cache keys, got %d calls", eval.calls)
	}
}

func TestApplyPreservesOrder(t *testing.T) {
	f := New(nil)

	candidates := []store.CuratedImage{
		img("pexels-1", "hands kneading dough"),
		img("pexels-2", "company logo"),
		img("pexels-3", "fingers on guitar strings"),
	}
	kept := f.Apply(context.Background(), "hands", candidates)
	if len(kept) != 2 {
		t.Fatalf("expected 2 kept, got %d", len(kept))
	}
	if kept[0].ProviderID != "pexels-1" || kept[1].ProviderID != "pexels-3" {
		t.Errorf("order not preserved: %v, %v", kept[0].ProviderID, kept[1].ProviderID)
	}
}
