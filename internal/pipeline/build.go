package pipeline

import (
	"strings"

	"go.uber.org/zap"

	"attendance/internal"
)

type BuildOptions struct {
	FullNameField string
	DurationField string
	// SkipInvalid drops only the offending row. When false the first row
	// without a name or duration ends the batch.
	SkipInvalid bool
}

type BuildResult struct {
	Header       []string
	Participants []internal.Participant
	Dropped      int
	Halted       bool
}

type RecordBuilder struct {
	opts   BuildOptions
	logger *zap.Logger
}

func NewRecordBuilder(opts BuildOptions, logger *zap.Logger) *RecordBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordBuilder{opts: opts, logger: logger}
}

func (b *RecordBuilder) Build(rows []internal.RawRow) BuildResult {
	res := BuildResult{Participants: []internal.Participant{}}
	headerSet := false

	for _, row := range rows {
		if isEmptyRow(row) {
			continue
		}
		if !headerSet {
			res.Header = append([]string(nil), row...)
			headerSet = true
			b.logger.Debug("header set", zap.Strings("header", res.Header))
			continue
		}

		fields := zipRow(res.Header, row)
		fullName := strings.TrimSpace(fields[b.opts.FullNameField])
		duration := strings.TrimSpace(fields[b.opts.DurationField])
		if fullName == "" || duration == "" {
			res.Dropped++
			b.logger.Warn("missing data in row", zap.Any("row", fields))
			if b.opts.SkipInvalid {
				continue
			}
			res.Halted = true
			b.logger.Warn("row processing halted", zap.Int("built", len(res.Participants)))
			break
		}

		firstName, lastName := SplitName(fullName)
		res.Participants = append(res.Participants, internal.Participant{
			FirstName: firstName,
			LastName:  lastName,
			Duration:  duration,
		})
	}

	return res
}

// SplitName takes the first space-delimited token as the given name and the
// remainder as the surname. A single token is treated as the surname.
func SplitName(fullName string) (firstName, lastName string) {
	first, rest, _ := strings.Cut(strings.TrimSpace(fullName), " ")
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", first
	}
	return first, rest
}

func zipRow(header []string, row internal.RawRow) map[string]string {
	out := make(map[string]string, len(header))
	for i, name := range header {
		value := ""
		if i < len(row) {
			value = row[i]
		}
		out[name] = value
	}
	return out
}

func isEmptyRow(row internal.RawRow) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
