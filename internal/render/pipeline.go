package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"aiResume/internal/catalog"
	"aiResume/internal/database"
)

var (
	// ErrTemplateNotFound：renderer key 没有对应的渲染资产。
	ErrTemplateNotFound = errors.New("render: template not found")
	// ErrRenderFailure：渲染器本身执行失败（模板执行、PDF 导出）。不重试。
	ErrRenderFailure = errors.New("render: render failure")
)

// PDFGenerator 将渲染好的 HTML 转换为 PDF 字节。
type PDFGenerator func(ctx context.Context, html string) ([]byte, error)

// documentContext 是注入模板的字段集合。
// 四个长文本字段是编辑器产出的富文本 HTML，经 safeHTML 直出。
type documentContext struct {
	FullName   string
	Email      string
	Phone      string
	WorkLink   string
	Summary    string
	Skills     string
	Experience string
	Education  string
	Color      string
}

// Pipeline 把简历字段物化为 HTML 预览或 PDF 文档。
type Pipeline struct {
	templates   map[string]*template.Template
	generatePDF PDFGenerator
}

// NewPipeline 解析全部渲染资产并构造 Pipeline。
// 资产在编译期固定，解析失败属于程序错误，直接返回。
func NewPipeline(generatePDF PDFGenerator) (*Pipeline, error) {
	funcs := template.FuncMap{
		"safeHTML": func(s string) template.HTML { return template.HTML(s) },
	}

	templates := make(map[string]*template.Template, len(rendererCSS))
	for key, css := range rendererCSS {
		tpl, err := template.New(key).Funcs(funcs).Parse(fmt.Sprintf(documentShell, css))
		if err != nil {
			return nil, fmt.Errorf("parse renderer %q: %w", key, err)
		}
		templates[key] = tpl
	}

	return &Pipeline{templates: templates, generatePDF: generatePDF}, nil
}

// RenderPreview 渲染 HTML 预览。对合法简历永不失败：
// 未知 renderer key 按目录策略降级到默认模板。
func (p *Pipeline) RenderPreview(resume *database.Resume, rendererKey string) ([]byte, error) {
	tpl, ok := p.templates[rendererKey]
	if !ok {
		tpl = p.templates[catalog.DefaultTemplate]
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, newDocumentContext(resume)); err != nil {
		return nil, fmt.Errorf("%w: execute template %q: %s", ErrRenderFailure, rendererKey, err)
	}
	return buf.Bytes(), nil
}

// RenderDocument 渲染 PDF 字节。renderer key 必须存在（调用方已经经过目录
// 解析，正常流程不会触发 ErrTemplateNotFound）。
func (p *Pipeline) RenderDocument(ctx context.Context, resume *database.Resume, rendererKey string) ([]byte, error) {
	tpl, ok := p.templates[rendererKey]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, rendererKey)
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, newDocumentContext(resume)); err != nil {
		return nil, fmt.Errorf("%w: execute template %q: %s", ErrRenderFailure, rendererKey, err)
	}

	data, err := p.generatePDF(ctx, buf.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRenderFailure, err)
	}
	return data, nil
}

func newDocumentContext(resume *database.Resume) documentContext {
	color := resume.Color
	if color == "" {
		color = database.DefaultColor
	}
	return documentContext{
		FullName:   resume.FullName,
		Email:      resume.Email,
		Phone:      resume.Phone,
		WorkLink:   resume.WorkLink,
		Summary:    resume.Summary,
		Skills:     resume.Skills,
		Experience: resume.Experience,
		Education:  resume.Education,
		Color:      color,
	}
}
