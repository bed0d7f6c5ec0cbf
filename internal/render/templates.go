package render

// 每个 renderer key 对应一套 CSS；页面骨架共享（见 documentShell）。
// 颜色由简历的 color 字段在渲染时注入为 --accent 变量。

const documentShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
:root { --accent: {{.Color}}; }
* { box-sizing: border-box; }
body { margin: 0; padding: 0; }
.page {
    width: 794px; /* A4 @ 96 DPI */
    min-height: 1122px;
    margin: 0 auto;
    padding: 48px;
    background: white;
}
.header h1 { margin: 0 0 4px 0; }
.contact { margin-bottom: 24px; }
.contact span + span::before { content: " | "; }
.section { margin-bottom: 20px; }
.section h2 { margin: 0 0 8px 0; }
.section .rich p { margin: 0 0 6px 0; }
%s
</style>
</head>
<body>
<div class="page">
    <div class="header">
        <h1>{{.FullName}}</h1>
        <div class="contact">
            {{if .Email}}<span>{{.Email}}</span>{{end}}
            {{if .Phone}}<span>{{.Phone}}</span>{{end}}
            {{if .WorkLink}}<span><a href="{{.WorkLink}}">{{.WorkLink}}</a></span>{{end}}
        </div>
    </div>
    <div class="body">
        {{if .Summary}}<div class="section summary"><h2>Summary</h2><div class="rich">{{.Summary | safeHTML}}</div></div>{{end}}
        {{if .Skills}}<div class="section skills"><h2>Skills</h2><div class="rich">{{.Skills | safeHTML}}</div></div>{{end}}
        {{if .Experience}}<div class="section experience"><h2>Experience</h2><div class="rich">{{.Experience | safeHTML}}</div></div>{{end}}
        {{if .Education}}<div class="section education"><h2>Education</h2><div class="rich">{{.Education | safeHTML}}</div></div>{{end}}
    </div>
</div>
</body>
</html>`

const modernCSS = `
body { font-family: 'Helvetica Neue', Arial, sans-serif; font-size: 11pt; color: #1f2937; }
.header h1 { font-size: 26pt; color: var(--accent); }
.contact { font-size: 9pt; color: #6b7280; }
.section h2 {
    font-size: 12pt;
    text-transform: uppercase;
    letter-spacing: 2px;
    color: var(--accent);
    border-bottom: 2px solid var(--accent);
    padding-bottom: 4px;
}
a { color: var(--accent); text-decoration: none; }`

const professionalCSS = `
body { font-family: Georgia, 'Times New Roman', serif; font-size: 11pt; color: #111827; }
.header { text-align: center; border-bottom: 3px double #111827; padding-bottom: 12px; }
.header h1 { font-size: 22pt; letter-spacing: 1px; }
.contact { font-size: 9pt; }
.section h2 { font-size: 12pt; font-variant: small-caps; border-bottom: 1px solid #9ca3af; }
a { color: inherit; }`

const simpleCSS = `
body { font-family: Arial, sans-serif; font-size: 11pt; color: #000; }
.header h1 { font-size: 20pt; }
.contact { font-size: 10pt; }
.section h2 { font-size: 12pt; }
a { color: inherit; }`

const creativeCSS = `
body { font-family: 'Segoe UI', 'Helvetica Neue', sans-serif; font-size: 10.5pt; color: #1f2937; }
.page { padding: 0; }
.header {
    background: var(--accent);
    color: white;
    padding: 40px 48px 28px 48px;
}
.header h1 { font-size: 28pt; font-weight: 300; }
.contact { color: rgba(255, 255, 255, 0.85); font-size: 9pt; }
.body { padding: 28px 48px; display: grid; grid-template-columns: 1fr 1fr; gap: 0 32px; }
.section.summary, .section.experience { grid-column: 1 / -1; }
.section h2 { font-size: 11pt; text-transform: uppercase; letter-spacing: 3px; color: var(--accent); }
a { color: white; text-decoration: underline; }`

const executiveCSS = `
body { font-family: 'Palatino Linotype', Palatino, serif; font-size: 11pt; color: #1c1917; }
.header h1 { font-size: 24pt; }
.header { border-left: 6px solid var(--accent); padding-left: 16px; }
.contact { font-size: 9pt; color: #57534e; }
.body { display: grid; grid-template-columns: 2fr 1fr; gap: 0 36px; }
.section.summary { grid-column: 1 / -1; }
.section.experience { grid-column: 1; grid-row: 2 / span 2; }
.section.skills { grid-column: 2; }
.section.education { grid-column: 2; }
.section h2 { font-size: 11pt; text-transform: uppercase; letter-spacing: 1px; color: var(--accent); }
a { color: var(--accent); }`

const minimalistCSS = `
body { font-family: 'Helvetica Neue', Helvetica, sans-serif; font-size: 10.5pt; color: #374151; font-weight: 300; }
.page { padding: 64px; }
.header h1 { font-size: 18pt; font-weight: 400; letter-spacing: 4px; text-transform: uppercase; }
.contact { font-size: 8.5pt; letter-spacing: 1px; color: #9ca3af; }
.section h2 { font-size: 9pt; font-weight: 400; letter-spacing: 3px; text-transform: uppercase; color: var(--accent); }
.section { margin-bottom: 28px; }
a { color: inherit; }`

var rendererCSS = map[string]string{
	"modern":       modernCSS,
	"professional": professionalCSS,
	"simple":       simpleCSS,
	"creative":     creativeCSS,
	"executive":    executiveCSS,
	"minimalist":   minimalistCSS,
}
