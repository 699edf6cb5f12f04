package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"attendance/internal"
	"attendance/internal/config"
	"attendance/internal/source"
	"attendance/internal/storage"
	"attendance/internal/util"
)

const (
	ReportFetched   = "fetched"
	ReportProcessed = "processed"
	ReportSkipped   = "skipped"
	ReportFailed    = "failed"
)

// ProcessingService runs the extraction pipeline and records each run. db
// may be nil, in which case nothing is persisted.
type ProcessingService struct {
	db     *storage.DB
	cfg    config.Config
	logger *zap.Logger
}

func NewProcessingService(db *storage.DB, cfg config.Config, logger *zap.Logger) *ProcessingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessingService{db: db, cfg: cfg, logger: logger}
}

type RunOptions struct {
	InputRef   string
	OutputPath string
	ReportID   *int
}

type RunResult struct {
	RunID        int
	TraceID      string
	ScannedRows  int
	Dropped      int
	Halted       bool
	Participants []internal.ClassifiedParticipant
	Eligible     int
	OutputPath   string
	Written      bool
	WriteErr     error
	Duration     time.Duration
}

func (s *ProcessingService) ProcessFile(ctx context.Context, inputPath, outputPath string) (RunResult, error) {
	src, err := source.Open(inputPath, s.sourceOptions())
	if err != nil {
		return RunResult{}, fmt.Errorf("open input: %w", err)
	}
	defer src.Close()

	return s.Process(ctx, src, RunOptions{InputRef: inputPath, OutputPath: outputPath})
}

// Process reads the section from src, builds, sorts and classifies the
// participants and writes them to opts.OutputPath. Read failures are
// returned; a failed write is logged and reported through RunResult only.
func (s *ProcessingService) Process(ctx context.Context, src source.RowSource, opts RunOptions) (RunResult, error) {
	start := time.Now()
	res := RunResult{TraceID: uuid.NewString(), OutputPath: opts.OutputPath}
	logger := s.logger.With(zap.String("trace_id", res.TraceID), zap.String("input", opts.InputRef))

	rows, err := ScanSection(src, s.cfg.StartMarker, s.cfg.StopMarker)
	if err != nil {
		logger.Error("failed to read input", zap.Error(err))
		return RunResult{}, fmt.Errorf("read input: %w", err)
	}
	res.ScannedRows = len(rows)
	logger.Info("section read", zap.Int("rows", len(rows)))

	if err := ctx.Err(); err != nil {
		return RunResult{}, err
	}

	built := NewRecordBuilder(BuildOptions{
		FullNameField: s.cfg.FullNameField,
		DurationField: s.cfg.DurationField,
		SkipInvalid:   s.cfg.InvalidRowPolicy == config.InvalidRowsSkip,
	}, logger).Build(rows)
	res.Dropped = built.Dropped
	res.Halted = built.Halted

	sorted, err := SortByLastName(built.Participants, s.cfg.CollationLocale)
	if err != nil {
		return RunResult{}, err
	}
	res.Participants = NewClassifier(s.cfg.HourUnit).Classify(sorted)
	res.Eligible = CountEligible(res.Participants)
	logger.Info("participants classified",
		zap.Int("participants", len(res.Participants)),
		zap.Int("eligible", res.Eligible),
		zap.Int("dropped", res.Dropped),
		zap.Bool("halted", res.Halted))

	status := internal.RunWritten
	if err := Export(res.Participants, opts.OutputPath); err != nil {
		logger.Error("failed to write output", zap.String("output", opts.OutputPath), zap.Error(err))
		res.WriteErr = err
		status = internal.RunWriteFailed
	} else {
		res.Written = true
		logger.Info("output written", zap.String("output", opts.OutputPath))
	}
	res.Duration = time.Since(start)

	if s.db == nil {
		return res, nil
	}
	runID, err := s.db.InsertRun(internal.RunRow{
		TraceID:      res.TraceID,
		ReportID:     opts.ReportID,
		InputPath:    opts.InputRef,
		OutputPath:   opts.OutputPath,
		Status:       string(status),
		ScannedRows:  res.ScannedRows,
		Participants: len(res.Participants),
		Eligible:     res.Eligible,
	}, res.Participants)
	if err != nil {
		return res, fmt.Errorf("record run: %w", err)
	}
	res.RunID = runID
	return res, nil
}

func (s *ProcessingService) ProcessByProviderMessageID(ctx context.Context, provider, messageID string) (RunResult, error) {
	if s.db == nil {
		return RunResult{}, fmt.Errorf("report lookup needs a database")
	}
	report, err := s.db.MustReportByProviderMessageID(provider, messageID)
	if err != nil {
		return RunResult{}, err
	}
	return s.ProcessReport(ctx, report)
}

// ProcessPending runs the pipeline over fetched reports. A report that
// cannot be read is marked failed and the batch moves on.
func (s *ProcessingService) ProcessPending(ctx context.Context, limit int, provider string) (int, int, error) {
	if s.db == nil {
		return 0, 0, fmt.Errorf("report processing needs a database")
	}
	pending, err := s.db.ListReportsByStatus(ReportFetched, provider, limit)
	if err != nil {
		return 0, 0, err
	}

	processedReports := 0
	processedParticipants := 0
	for _, report := range pending {
		if err := ctx.Err(); err != nil {
			return processedReports, processedParticipants, err
		}
		res, err := s.ProcessReport(ctx, report)
		if err != nil {
			s.logger.Error("report processing failed", zap.Int("report_id", report.ID), zap.Error(err))
			if uerr := s.db.UpdateReportStatus(report.ID, ReportFailed); uerr != nil {
				return processedReports, processedParticipants, uerr
			}
			continue
		}
		if res.TraceID == "" {
			continue
		}
		processedReports++
		processedParticipants += len(res.Participants)
	}
	return processedReports, processedParticipants, nil
}

// ProcessReport runs one stored message. Messages that do not look like an
// attendance export are marked skipped and yield an empty result.
func (s *ProcessingService) ProcessReport(ctx context.Context, report internal.ReportRow) (RunResult, error) {
	raw, err := os.ReadFile(report.RawRef)
	if err != nil {
		return RunResult{}, err
	}
	mail, err := source.ParseMail(bytes.NewReader(raw))
	if err != nil {
		return RunResult{}, err
	}

	detect := DetectAttendanceReport(firstNonEmpty(mail.Subject, report.Subject), mail.Text, mail.AttachmentNames())
	if !detect.IsReport {
		s.logger.Info("message skipped", zap.Int("report_id", report.ID), zap.String("reason", detect.Reason), zap.Float64("score", detect.Score))
		return RunResult{}, s.db.UpdateReportStatus(report.ID, ReportSkipped)
	}

	src, err := mail.Open(s.sourceOptions())
	if err != nil {
		return RunResult{}, err
	}
	defer src.Close()

	ext := filepath.Ext(s.cfg.OutputPath)
	if ext == "" {
		ext = ".csv"
	}
	outputPath := filepath.Join(s.cfg.OutputDir, fmt.Sprintf("%d_%s%s", report.ID, util.SanitizeFileName(report.MessageID), ext))
	reportID := report.ID
	res, err := s.Process(ctx, src, RunOptions{InputRef: report.RawRef, OutputPath: outputPath, ReportID: &reportID})
	if err != nil {
		return RunResult{}, err
	}

	status := ReportProcessed
	if !res.Written {
		status = ReportFailed
	}
	if err := s.db.UpdateReportStatus(report.ID, status); err != nil {
		return res, err
	}
	return res, nil
}

func (s *ProcessingService) sourceOptions() source.Options {
	return source.Options{Type: internal.InputType(s.cfg.InputType), Encoding: s.cfg.InputEncoding}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
