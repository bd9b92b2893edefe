package export

import (
	"strings"
	"testing"
	"time"
)

func TestRenderNoticeHTML(t *testing.T) {
	data := NoticeData{
		CaseType:    "Property Dispute",
		PartyFrom:   "Adv. Meera Nair",
		PartyTo:     "Rajat Builders Pvt. Ltd.",
		Issue:       "Encroachment on plot 14B",
		Body:        "Line one of the notice.\nLine two of the notice.",
		GeneratedAt: time.Date(2024, 11, 5, 10, 0, 0, 0, time.UTC),
	}

	html, err := RenderNoticeHTML(data)
	if err != nil {
		t.Fatalf("RenderNoticeHTML() error = %v", err)
	}

	for _, want := range []string{
		"LEGAL NOTICE",
		"November 5, 2024",
		"Adv. Meera Nair",
		"Rajat Builders Pvt. Ltd.",
		"Encroachment on plot 14B",
		"Property Dispute",
		"Line one of the notice.",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered notice missing %q", want)
		}
	}
}

func TestRenderNoticeHTMLEscapesBody(t *testing.T) {
	data := NoticeData{
		Body:        "<script>alert(1)</script>",
		GeneratedAt: time.Now(),
	}

	html, err := RenderNoticeHTML(data)
	if err != nil {
		t.Fatalf("RenderNoticeHTML() error = %v", err)
	}

	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Error("notice body should be escaped, raw script tag found")
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Error("notice body should contain escaped markup")
	}
}

func TestRenderNoticeHTMLOmitsEmptyParties(t *testing.T) {
	data := NoticeData{
		Body:        "Body only.",
		GeneratedAt: time.Now(),
	}

	html, err := RenderNoticeHTML(data)
	if err != nil {
		t.Fatalf("RenderNoticeHTML() error = %v", err)
	}

	if strings.Contains(html, "From:") {
		t.Error("empty sender should not render a From line")
	}
	if strings.Contains(html, "To:") {
		t.Error("empty recipient should not render a To line")
	}
	if strings.Contains(html, "Re:") {
		t.Error("empty issue should not render a subject line")
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	_, err := Export(NoticeData{Body: "x", GeneratedAt: time.Now()}, Format("odt"))
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Legal Notice Property Dispute", "Legal-Notice-Property-Dispute"},
		{"Notice v1.2", "Notice-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "notice"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},       // Spaces encoded as %20, not +
		{"test+sign", "test%2Bsign"},           // + signs are encoded
		{"special<>", "special%3C%3E"},         // Special chars encoded
		{"normal-text.txt", "normal-text.txt"}, // Unreserved chars pass through
		{"", ""},                               // Empty string
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := percentEncodeForDataURL(tt.input)
			if result != tt.expected {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
