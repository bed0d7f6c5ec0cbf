package render

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"aiResume/internal/database"
)

func fakePDF(_ context.Context, html string) ([]byte, error) {
	return []byte("%PDF " + html[:20]), nil
}

func sampleResume() *database.Resume {
	return &database.Resume{
		FullName:   "Ada Lovelace",
		Email:      "ada@example.com",
		Phone:      "555-0100",
		Summary:    "<p>Analytical engine programmer.</p>",
		Skills:     "<ul><li>Mathematics</li></ul>",
		Experience: "<p>Collaborated with Charles Babbage.</p>",
		Education:  "<p>Private tutoring.</p>",
		WorkLink:   "https://example.com/ada",
		Template:   "modern",
		Color:      "#2563eb",
	}
}

func TestRenderPreview_ContainsResumeFields(t *testing.T) {
	p, err := NewPipeline(fakePDF)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	html, err := p.RenderPreview(sampleResume(), "modern")
	if err != nil {
		t.Fatalf("render preview: %v", err)
	}

	for _, want := range []string{
		"Ada Lovelace",
		"ada@example.com",
		"555-0100",
		"<p>Analytical engine programmer.</p>", // 富文本必须直出，不被转义
		"#2563eb",
	} {
		if !bytes.Contains(html, []byte(want)) {
			t.Errorf("preview missing %q", want)
		}
	}
}

func TestRenderPreview_AllRendererKeys(t *testing.T) {
	p, err := NewPipeline(fakePDF)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	for _, key := range []string{"modern", "professional", "simple", "creative", "executive", "minimalist"} {
		if _, err := p.RenderPreview(sampleResume(), key); err != nil {
			t.Errorf("render preview %q: %v", key, err)
		}
	}
}

func TestRenderPreview_UnknownKeyFallsBack(t *testing.T) {
	p, err := NewPipeline(fakePDF)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	fallback, err := p.RenderPreview(sampleResume(), "does-not-exist")
	if err != nil {
		t.Fatalf("render preview: %v", err)
	}
	modern, err := p.RenderPreview(sampleResume(), "modern")
	if err != nil {
		t.Fatalf("render preview: %v", err)
	}
	if !bytes.Equal(fallback, modern) {
		t.Fatal("unknown renderer key should degrade to the modern renderer")
	}
}

func TestRenderPreview_EmptyOptionalFieldsOmitted(t *testing.T) {
	p, err := NewPipeline(fakePDF)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	resume := &database.Resume{FullName: "Ada", Email: "ada@example.com"}
	html, err := p.RenderPreview(resume, "simple")
	if err != nil {
		t.Fatalf("render preview: %v", err)
	}
	for _, absent := range []string{"Skills", "Experience", "Education", "Summary"} {
		if strings.Contains(string(html), ">"+absent+"<") {
			t.Errorf("empty section %q should not render a heading", absent)
		}
	}
}

func TestRenderDocument_StructuralContentStable(t *testing.T) {
	p, err := NewPipeline(fakePDF)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	ctx := context.Background()
	first, err := p.RenderDocument(ctx, sampleResume(), "executive")
	if err != nil {
		t.Fatalf("render document: %v", err)
	}
	second, err := p.RenderDocument(ctx, sampleResume(), "executive")
	if err != nil {
		t.Fatalf("render document: %v", err)
	}
	// 相同输入下结构化内容一致（真实渲染器可能嵌入时间戳，这里用 fake 验证管道本身）。
	if !bytes.Equal(first, second) {
		t.Fatal("identical inputs must produce identical structural content")
	}
}

func TestRenderDocument_UnknownKey(t *testing.T) {
	p, err := NewPipeline(fakePDF)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	_, err = p.RenderDocument(context.Background(), sampleResume(), "missing")
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestRenderDocument_GeneratorFailure(t *testing.T) {
	failing := func(_ context.Context, _ string) ([]byte, error) {
		return nil, errors.New("chromium crashed")
	}
	p, err := NewPipeline(failing)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	_, err = p.RenderDocument(context.Background(), sampleResume(), "modern")
	if !errors.Is(err, ErrRenderFailure) {
		t.Fatalf("expected ErrRenderFailure, got %v", err)
	}
}
