package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type fakeProvider struct {
	name  string
	text  string
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) TryExtract(ctx context.Context, req Request) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestChainStopsAtFirstSuccess(t *testing.T) {
	t.Parallel()

	good := strings.Repeat("recognized text ", 10)
	first := &fakeProvider{name: "first", text: good}
	second := &fakeProvider{name: "second", text: good}

	chain := NewChain(50, nil, first, second)
	got := chain.Run(context.Background(), Request{}, nil)
	if got != strings.TrimSpace(good) {
		t.Fatalf("unexpected text: %q", got)
	}
	if second.calls != 0 {
		t.Fatalf("chain must stop at first success")
	}
}

func TestChainAdvancesOnError(t *testing.T) {
	t.Parallel()

	good := strings.Repeat("recovered by the second provider ", 5)
	failing := &fakeProvider{name: "failing", err: errors.New("quota exceeded")}
	working := &fakeProvider{name: "working", text: good}

	chain := NewChain(50, nil, failing, working)
	got := chain.Run(context.Background(), Request{}, nil)
	if got == "" {
		t.Fatalf("expected second provider to serve")
	}
	if failing.calls != 1 || working.calls != 1 {
		t.Fatalf("unexpected call counts: %d %d", failing.calls, working.calls)
	}
}

func TestChainAdvancesOnShortOutput(t *testing.T) {
	t.Parallel()

	short := &fakeProvider{name: "short", text: "tiny"}
	long := &fakeProvider{name: "long", text: strings.Repeat("plenty of text here ", 5)}

	chain := NewChain(50, nil, short, long)
	if got := chain.Run(context.Background(), Request{}, nil); !strings.Contains(got, "plenty") {
		t.Fatalf("short output should not satisfy the chain: %q", got)
	}
}

func TestChainExhaustedReturnsEmpty(t *testing.T) {
	t.Parallel()

	chain := NewChain(50, nil,
		&fakeProvider{name: "a", err: errors.New("down")},
		&fakeProvider{name: "b", text: "too short"},
	)
	if got := chain.Run(context.Background(), Request{}, nil); got != "" {
		t.Fatalf("exhausted chain must return empty, got %q", got)
	}
}

func TestChainNoProviders(t *testing.T) {
	t.Parallel()

	if got := NewChain(50, nil).Run(context.Background(), Request{}, nil); got != "" {
		t.Fatalf("empty chain must return empty, got %q", got)
	}
}

func TestChainReportsStages(t *testing.T) {
	t.Parallel()

	var stages []string
	chain := NewChain(50, nil,
		&fakeProvider{name: "one", err: errors.New("x")},
		&fakeProvider{name: "two", text: strings.Repeat("good output text ", 5)},
	)
	chain.Run(context.Background(), Request{}, func(p string) { stages = append(stages, p) })
	if fmt.Sprint(stages) != "[one two]" {
		t.Fatalf("unexpected stages: %v", stages)
	}
}

func TestChainHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &fakeProvider{name: "never", text: strings.Repeat("x", 100)}
	if got := NewChain(50, nil, p).Run(ctx, Request{}, nil); got != "" {
		t.Fatalf("canceled context must stop the chain, got %q", got)
	}
	if p.calls != 0 {
		t.Fatalf("provider called despite cancellation")
	}
}
