package llm

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type fakeProvider struct {
	name   string
	fields Fields
	err    error
	calls  int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Extract(ctx context.Context, images []Image) (Fields, Usage, error) {
	f.calls++
	if f.err != nil {
		return Fields{}, Usage{}, f.err
	}
	return f.fields, Usage{}, nil
}

func TestPolicy_Extract_UsesPrimaryWhenConfigured(t *testing.T) {
	primary := &fakeProvider{name: "primary", fields: Fields{VendorName: "Acme"}}
	fallback := &fakeProvider{name: "fallback"}
	p := NewPolicy(primary, fallback, true, zap.NewNop())

	fields, _, provider, err := p.Extract(context.Background(), nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if provider != Primary {
		t.Errorf("provider = %v, want %v", provider, Primary)
	}
	if fields.VendorName != "Acme" {
		t.Errorf("VendorName = %q, want %q", fields.VendorName, "Acme")
	}
	if fallback.calls != 0 {
		t.Errorf("fallback.calls = %d, want 0", fallback.calls)
	}
}

func TestPolicy_Extract_FallsBackOnPrimaryError(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: errors.New("rate limited")}
	fallback := &fakeProvider{name: "fallback", fields: Fields{VendorName: "Acme"}}
	p := NewPolicy(primary, fallback, true, zap.NewNop())

	_, _, provider, err := p.Extract(context.Background(), nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if provider != Fallback {
		t.Errorf("provider = %v, want %v", provider, Fallback)
	}
	if primary.calls != 1 {
		t.Errorf("primary.calls = %d, want 1", primary.calls)
	}
}

func TestPolicy_Extract_BothFail(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: errors.New("rate limited")}
	fallback := &fakeProvider{name: "fallback", err: errors.New("also down")}
	p := NewPolicy(primary, fallback, true, zap.NewNop())

	_, _, _, err := p.Extract(context.Background(), nil)
	if err == nil {
		t.Fatal("Extract() error = nil, want error")
	}
}

func TestPolicy_Extract_SkipsPrimaryWhenNotConfigured(t *testing.T) {
	primary := &fakeProvider{name: "primary"}
	fallback := &fakeProvider{name: "fallback", fields: Fields{VendorName: "Acme"}}
	p := NewPolicy(primary, fallback, false, zap.NewNop())

	_, _, provider, err := p.Extract(context.Background(), nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if provider != Fallback {
		t.Errorf("provider = %v, want %v", provider, Fallback)
	}
	if primary.calls != 0 {
		t.Errorf("primary.calls = %d, want 0 (primary not configured)", primary.calls)
	}
}
