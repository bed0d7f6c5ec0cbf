package ai

import "strings"

// FieldKind 标识被润色的简历字段。
type FieldKind string

const (
	FieldSkills     FieldKind = "skills"
	FieldEducation  FieldKind = "education"
	FieldExperience FieldKind = "experience"
	FieldSummary    FieldKind = "summary"
	FieldGeneral    FieldKind = "general"
)

// 每类字段固定一条系统指令；未识别的字段走通用改写指令。
var systemPrompts = map[FieldKind]string{
	FieldSkills: "You are a professional resume writer. Rewrite the following skills section as a concise, " +
		"ATS-friendly list of competencies. Keep it factual and remove filler words.",
	FieldEducation: "You are a professional resume writer. Rewrite the following education section to be concise " +
		"and ATS-friendly. Keep institution names, degrees and dates intact.",
	FieldExperience: "You are a professional resume writer. Rewrite the following work experience using strong " +
		"action verbs and measurable outcomes. Keep it concise and ATS-friendly.",
	FieldSummary: "You are a professional resume writer. Rewrite the following professional summary to be " +
		"concise, confident and ATS-friendly, in at most three sentences.",
	FieldGeneral: "You are a professional resume writer. Rewrite the content to be concise, ATS-friendly, and professional.",
}

// 空输入时按字段替换为通用占位请求，而不是拒绝（见 gateway.Improve）。
var placeholderPrompts = map[FieldKind]string{
	FieldSkills:     "Write a short example skills section for a professional resume.",
	FieldEducation:  "Write a short example education section for a professional resume.",
	FieldExperience: "Write a short example work experience entry for a professional resume.",
	FieldSummary:    "Write a short example professional summary for a resume.",
	FieldGeneral:    "Write a short example section for a professional resume.",
}

// NormalizeField 将自由输入收敛到已知字段，未知值落到通用指令。
func NormalizeField(raw string) FieldKind {
	switch FieldKind(strings.ToLower(strings.TrimSpace(raw))) {
	case FieldSkills:
		return FieldSkills
	case FieldEducation:
		return FieldEducation
	case FieldExperience:
		return FieldExperience
	case FieldSummary:
		return FieldSummary
	default:
		return FieldGeneral
	}
}

func systemPromptFor(kind FieldKind) string {
	if p, ok := systemPrompts[kind]; ok {
		return p
	}
	return systemPrompts[FieldGeneral]
}

func placeholderPromptFor(kind FieldKind) string {
	if p, ok := placeholderPrompts[kind]; ok {
		return p
	}
	return placeholderPrompts[FieldGeneral]
}
