package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"aiResume/internal/ratelimit"
)

type fakeCompletion struct {
	lastSystem string
	lastUser   string
	calls      int
	result     string
	err        error
}

func (f *fakeCompletion) Complete(_ context.Context, systemPrompt, userText string) (string, error) {
	f.calls++
	f.lastSystem = systemPrompt
	f.lastUser = userText
	if f.err != nil {
		return "", f.err
	}
	return f.result, nil
}

type countStore struct {
	counts map[string]int64
}

func (s *countStore) Get(_ context.Context, key string) (int64, error) {
	return s.counts[key], nil
}

func (s *countStore) Set(_ context.Context, key string, value int64, _ time.Duration) error {
	s.counts[key] = value
	return nil
}

func newTestGateway(client *fakeCompletion, limit int) (*Gateway, *countStore) {
	store := &countStore{counts: map[string]int64{}}
	limiter := ratelimit.NewLimiter(store)
	return NewGateway(client, limiter, nil, limit, time.Minute), store
}

func TestImprove_HappyPath(t *testing.T) {
	client := &fakeCompletion{result: "Led a team of five engineers."}
	gw, _ := newTestGateway(client, 20)

	got, err := gw.Improve(context.Background(), "user-7:dashboard", "i managed some people", FieldExperience)
	if err != nil {
		t.Fatalf("improve: %v", err)
	}
	if got != "Led a team of five engineers." {
		t.Fatalf("result = %q", got)
	}
	if client.lastSystem != systemPromptFor(FieldExperience) {
		t.Errorf("experience field must select the experience instruction, got %q", client.lastSystem)
	}
	if client.lastUser != "i managed some people" {
		t.Errorf("user text = %q", client.lastUser)
	}
}

func TestImprove_UnknownFieldUsesGeneralPrompt(t *testing.T) {
	client := &fakeCompletion{result: "ok"}
	gw, _ := newTestGateway(client, 20)

	if _, err := gw.Improve(context.Background(), "u", "text", NormalizeField("hobbies")); err != nil {
		t.Fatalf("improve: %v", err)
	}
	if client.lastSystem != systemPromptFor(FieldGeneral) {
		t.Errorf("unknown field must fall back to the general instruction, got %q", client.lastSystem)
	}
}

// 选定策略：空文本不报错，替换为占位请求，并照常消费一个限流名额。
func TestImprove_EmptyTextSubstitutesPlaceholderAndConsumesSlot(t *testing.T) {
	client := &fakeCompletion{result: "Example skills section."}
	gw, store := newTestGateway(client, 20)

	got, err := gw.Improve(context.Background(), "user-7", "   ", FieldSkills)
	if err != nil {
		t.Fatalf("empty text must not fail: %v", err)
	}
	if got == "" {
		t.Fatal("expected a result for the placeholder prompt")
	}
	if client.lastUser != placeholderPromptFor(FieldSkills) {
		t.Errorf("placeholder prompt not used, got %q", client.lastUser)
	}
	if store.counts["ai:limit:user-7"] != 1 {
		t.Errorf("empty-text call must still consume one slot, counter = %d", store.counts["ai:limit:user-7"])
	}
}

func TestImprove_RateLimited(t *testing.T) {
	client := &fakeCompletion{result: "ok"}
	gw, store := newTestGateway(client, 20)
	store.counts["ai:limit:anon:203.0.113.9:/editor"] = 20

	_, err := gw.Improve(context.Background(), "anon:203.0.113.9:/editor", "text", FieldSummary)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if client.calls != 0 {
		t.Fatal("no upstream call may be made once the limit is hit")
	}
}

func TestImprove_UpstreamFailure(t *testing.T) {
	client := &fakeCompletion{err: errors.New("completion status 503: overloaded")}
	gw, store := newTestGateway(client, 20)

	_, err := gw.Improve(context.Background(), "u", "text", FieldSummary)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	// 失败也不退还名额。
	if store.counts["ai:limit:u"] != 1 {
		t.Errorf("failed call should keep its slot, counter = %d", store.counts["ai:limit:u"])
	}
}

func TestNormalizeField(t *testing.T) {
	cases := map[string]FieldKind{
		"skills":     FieldSkills,
		" Skills ":   FieldSkills,
		"education":  FieldEducation,
		"experience": FieldExperience,
		"summary":    FieldSummary,
		"":           FieldGeneral,
		"projects":   FieldGeneral,
	}
	for raw, want := range cases {
		if got := NormalizeField(raw); got != want {
			t.Errorf("NormalizeField(%q) = %q, want %q", raw, got, want)
		}
	}
}
