package export

import (
	"bytes"
	"fmt"
	"html/template"
)

var noticeTemplate = template.Must(template.New("notice").Parse(noticeTemplateHTML))

// RenderNoticeHTML renders the notice letter template with provided data.
// The notice body is plain text from the model; the template escapes it and
// preserves line breaks via pre-wrap.
func RenderNoticeHTML(data NoticeData) (string, error) {
	var buf bytes.Buffer
	if err := noticeTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Export renders the notice and converts it to the requested format.
func Export(data NoticeData, format Format) (*Result, error) {
	html, err := RenderNoticeHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render notice: %w", err)
	}

	title := "Legal Notice"
	if data.CaseType != "" {
		title = "Legal Notice " + data.CaseType
	}

	switch format {
	case FormatPDF:
		return exportPDF(html, title)
	case FormatDOCX:
		return exportDOCX(html, title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

const noticeTemplateHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Legal Notice</title>
  <style>
    body { font-family: Georgia, 'Times New Roman', serif; line-height: 1.7; max-width: 800px; margin: 2rem auto; color: #1a1a1a; }
    h1 { text-align: center; letter-spacing: 0.2em; border-bottom: 2px solid #1a1a1a; padding-bottom: 0.5rem; }
    .date { text-align: right; margin: 1.5rem 0; }
    .parties { margin: 1.5rem 0; }
    .parties div { margin-bottom: 0.25rem; }
    .subject { font-weight: bold; margin: 1.5rem 0; }
    .body { white-space: pre-wrap; margin: 1.5rem 0; }
    .disclaimer { margin-top: 3rem; padding-top: 1rem; border-top: 1px solid #999; color: #666; font-size: 0.85em; }
  </style>
</head>
<body>
  <h1>LEGAL NOTICE</h1>
  <div class="date">{{.GeneratedAt.Format "January 2, 2006"}}</div>
  <div class="parties">
    {{if .PartyFrom}}<div><strong>From:</strong> {{.PartyFrom}}</div>{{end}}
    {{if .PartyTo}}<div><strong>To:</strong> {{.PartyTo}}</div>{{end}}
  </div>
  {{if .Issue}}<div class="subject">Re: {{.Issue}}{{if .CaseType}} ({{.CaseType}}){{end}}</div>{{end}}
  <div class="body">{{.Body}}</div>
  <div class="disclaimer">This notice was generated electronically and should be reviewed by a licensed attorney before service.</div>
</body>
</html>`
