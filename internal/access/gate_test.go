package access

import (
	"context"
	"testing"
	"time"
)

type memoryStore struct {
	values map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.values[key] = value
	return nil
}

func (s *memoryStore) Del(_ context.Context, key string) error {
	delete(s.values, key)
	return nil
}

func newTestGate() (*Gate, *Sessions) {
	sessions := NewSessions(newMemoryStore(), time.Hour)
	return NewGate(sessions), sessions
}

func TestAuthorize_FreeTemplateAllowed(t *testing.T) {
	ctx := context.Background()
	gate, _ := newTestGate()

	for _, id := range []string{"modern", "professional", "simple"} {
		d, err := gate.Authorize(ctx, "user-1", 42, id)
		if err != nil {
			t.Fatalf("authorize %q: %v", id, err)
		}
		if d.State != StateAllowed {
			t.Errorf("free template %q should be allowed, got %s", id, d.State)
		}
		if d.RendererKey != id {
			t.Errorf("renderer key = %q, want %q", d.RendererKey, id)
		}
	}
}

func TestAuthorize_UnknownTemplateDegradesToFree(t *testing.T) {
	ctx := context.Background()
	gate, _ := newTestGate()

	d, err := gate.Authorize(ctx, "user-1", 42, "vaporwave")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if d.State != StateAllowed || d.RendererKey != "modern" {
		t.Fatalf("unknown identifier should fall back to the free modern renderer, got %+v", d)
	}
}

func TestAuthorize_PremiumUnpaidRecordsIntent(t *testing.T) {
	ctx := context.Background()
	gate, sessions := newTestGate()

	d, err := gate.Authorize(ctx, "user-1", 42, "creative")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if d.State != StatePendingPayment {
		t.Fatalf("premium unpaid should be pending payment, got %s", d.State)
	}

	intent, err := sessions.TakePendingIntent(ctx, "user-1")
	if err != nil {
		t.Fatalf("take intent: %v", err)
	}
	if intent == nil {
		t.Fatal("pending intent should have been recorded")
	}
	if intent.ResumeID != 42 || intent.Template != "creative" {
		t.Fatalf("intent = %+v, want {42 creative}", intent)
	}

	// 意图是一次性的，再取应为空。
	again, err := sessions.TakePendingIntent(ctx, "user-1")
	if err != nil {
		t.Fatalf("take intent twice: %v", err)
	}
	if again != nil {
		t.Fatal("pending intent must be consumed exactly once")
	}
}

func TestAuthorize_PaidFlagIsSingleUse(t *testing.T) {
	ctx := context.Background()
	gate, sessions := newTestGate()

	if err := sessions.MarkPaid(ctx, "user-1"); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	first, err := gate.Authorize(ctx, "user-1", 42, "executive")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if first.State != StateAllowed {
		t.Fatalf("paid premium request should be allowed, got %s", first.State)
	}

	// 第二次请求缺少新的支付，回到待支付状态。
	second, err := gate.Authorize(ctx, "user-1", 42, "executive")
	if err != nil {
		t.Fatalf("authorize again: %v", err)
	}
	if second.State != StatePendingPayment {
		t.Fatalf("paid flag must be single use, got %s", second.State)
	}
}

func TestAuthorize_PaidFlagScopedPerUser(t *testing.T) {
	ctx := context.Background()
	gate, sessions := newTestGate()

	if err := sessions.MarkPaid(ctx, "user-1"); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	d, err := gate.Authorize(ctx, "user-2", 7, "minimalist")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if d.State != StatePendingPayment {
		t.Fatalf("user-2 must not consume user-1's payment, got %s", d.State)
	}
}

func TestAuthorize_SyntacticallyInvalidDenied(t *testing.T) {
	ctx := context.Background()
	gate, _ := newTestGate()

	for _, id := range []string{"Creative", "a b", "x/../y", "-leading", string([]byte{0xff, 0xfe})} {
		d, err := gate.Authorize(ctx, "user-1", 42, id)
		if err != nil {
			t.Fatalf("authorize %q: %v", id, err)
		}
		if d.State != StateDenied {
			t.Errorf("identifier %q should be denied, got %s", id, d.State)
		}
	}
}
