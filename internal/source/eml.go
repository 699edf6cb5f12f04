package source

import (
	"fmt"
	"io"
	"strings"

	"github.com/jhillyerd/enmime"

	"attendance/internal"
)

type Attachment struct {
	FileName string
	Content  []byte
}

// MailReport is a parsed message that may carry an attendance export.
type MailReport struct {
	Subject     string
	From        string
	Text        string
	Attachments []Attachment
}

func ParseMail(r io.Reader) (*MailReport, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, fmt.Errorf("parse mail: %w", err)
	}

	report := &MailReport{
		Subject: env.GetHeader("Subject"),
		From:    env.GetHeader("From"),
		Text:    env.Text,
	}
	parts := append([]*enmime.Part{}, env.Attachments...)
	parts = append(parts, env.Inlines...)
	for _, part := range parts {
		name := strings.TrimSpace(part.FileName)
		if name == "" {
			continue
		}
		report.Attachments = append(report.Attachments, Attachment{FileName: name, Content: part.Content})
	}
	return report, nil
}

func (m *MailReport) AttachmentNames() []string {
	out := make([]string, 0, len(m.Attachments))
	for _, att := range m.Attachments {
		out = append(out, att.FileName)
	}
	return out
}

// ReportAttachment returns the first attachment whose extension is a
// supported tabular export. Nested messages are not followed.
func (m *MailReport) ReportAttachment() (Attachment, internal.InputType, error) {
	for _, att := range m.Attachments {
		inType, err := DetectType(att.FileName)
		if err != nil || inType == internal.InputEML {
			continue
		}
		return att, inType, nil
	}
	return Attachment{}, "", ErrNoReportAttachment
}

func (m *MailReport) Open(opts Options) (RowSource, error) {
	att, inType, err := m.ReportAttachment()
	if err != nil {
		return nil, err
	}
	return FromBytes(att.FileName, att.Content, Options{Type: inType, Encoding: opts.Encoding})
}

func NewEML(r io.Reader, opts Options) (RowSource, error) {
	report, err := ParseMail(r)
	if err != nil {
		return nil, err
	}
	return report.Open(opts)
}
