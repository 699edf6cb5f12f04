package pipeline

import (
	"strings"

	"attendance/internal"
	"attendance/internal/source"
)

type DetectResult struct {
	IsReport bool
	Score    float64
	Reason   string
}

var detectKeywords = []string{"raport obecności", "raport obecnosci", "attendance report", "obecność", "obecnosc", "uczestnicy", "spotkani"}

// DetectAttendanceReport decides whether a fetched message carries an
// attendance export worth running through the pipeline.
func DetectAttendanceReport(subject, text string, attachmentNames []string) DetectResult {
	subject = strings.ToLower(subject)
	text = strings.ToLower(text)

	hasTable := false
	for _, name := range attachmentNames {
		if t, err := source.DetectType(name); err == nil && t != internal.InputEML {
			hasTable = true
			break
		}
	}
	if !hasTable {
		return DetectResult{IsReport: false, Score: 0, Reason: "no_table_attachment"}
	}

	score := 0.4
	for _, kw := range detectKeywords {
		if strings.Contains(subject, kw) {
			score += 0.3
		}
		if strings.Contains(text, kw) {
			score += 0.15
		}
	}
	for _, name := range attachmentNames {
		ln := strings.ToLower(name)
		if strings.Contains(ln, "obecno") || strings.Contains(ln, "attendance") {
			score += 0.3
			break
		}
	}
	if score > 1 {
		score = 1
	}

	isReport := score >= 0.7
	reason := "rules_negative"
	if isReport {
		reason = "rules_positive"
	}
	return DetectResult{IsReport: isReport, Score: score, Reason: reason}
}
