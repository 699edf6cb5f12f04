package pipeline

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/encoding/unicode"

	"attendance/internal"
	"attendance/internal/config"
	"attendance/internal/source"
	"attendance/internal/storage"
)

const meetingExport = "1. Podsumowanie\n" +
	"Tytuł spotkania\t5TP Zadanie programistyczne pod INF.04\n" +
	"Uczestnicy\t3\n" +
	"\n" +
	"2. Uczestnicy\n" +
	"Imię i nazwisko\tPierwsze dołączenie\tOstatnie wyjście\tCzas udziału w spotkaniu\tAdres e-mail\n" +
	"Adam Nowak\t06.09.2024, 08:05:12\t06.09.2024, 08:35:12\t30 min.\tadam@example.com\n" +
	"Jan Kowalski\t06.09.2024, 08:00:01\t06.09.2024, 09:10:01\t1 godz. 10 min.\tjan@example.com\n" +
	"\n" +
	"3. Działania podczas spotkania\n" +
	"Imię i nazwisko\tDołączenie\tWyjście\n" +
	"Jan Kowalski\t06.09.2024, 08:00:01\t06.09.2024, 09:10:01\n"

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		DBPath:           filepath.Join(dir, "data", "app.db"),
		RawMailDir:       filepath.Join(dir, "data", "raw"),
		OutputDir:        filepath.Join(dir, "out"),
		InputEncoding:    "utf16le",
		OutputPath:       filepath.Join(dir, "out", "attendance.csv"),
		StartMarker:      startMarker,
		StopMarker:       stopMarker,
		FullNameField:    "Imię i nazwisko",
		DurationField:    "Czas udziału w spotkaniu",
		HourUnit:         "godz",
		InvalidRowPolicy: config.InvalidRowsHalt,
		CollationLocale:  "pl",
	}
}

func writeUTF16(t *testing.T, path, text string) {
	t.Helper()
	blob, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(text))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, blob, 0o644))
}

func openDB(t *testing.T, cfg config.Config) *storage.DB {
	t.Helper()
	db, err := storage.Open(cfg.DBPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestProcessFileEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	db := openDB(t, cfg)
	input := filepath.Join(t.TempDir(), "raport.csv")
	writeUTF16(t, input, meetingExport)

	svc := NewProcessingService(db, cfg, zaptest.NewLogger(t))
	res, err := svc.ProcessFile(context.Background(), input, cfg.OutputPath)
	require.NoError(t, err)

	assert.True(t, res.Written)
	assert.Equal(t, 3, res.ScannedRows)
	assert.Equal(t, 1, res.Eligible)
	assert.False(t, res.Halted)
	assert.NotEmpty(t, res.TraceID)

	blob, err := os.ReadFile(cfg.OutputPath)
	require.NoError(t, err)
	assert.Equal(t,
		"Nazwisko,Imię,Status zaświadczenia,Czas uczestnictwa\n"+
			"Kowalski,Jan,Tak,1 godz. 10 min.\n"+
			"Nowak,Adam,Nie,30 min.\n",
		string(blob))

	run, err := db.GetRun(res.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, string(internal.RunWritten), run.Status)
	assert.Equal(t, 2, run.Participants)

	stored, err := db.GetRunParticipants(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.Participants, stored)
}

func TestProcessFileMissingInput(t *testing.T) {
	cfg := testConfig(t)
	svc := NewProcessingService(nil, cfg, zaptest.NewLogger(t))

	_, err := svc.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), cfg.OutputPath)
	assert.Error(t, err)
	_, statErr := os.Stat(cfg.OutputPath)
	assert.True(t, os.IsNotExist(statErr), "no output on read failure")
}

func TestProcessFileQuotedNameFailsRead(t *testing.T) {
	cfg := testConfig(t)
	input := filepath.Join(t.TempDir(), "raport.csv")
	writeUTF16(t, input, "2. Uczestnicy\n"+
		"Imię i nazwisko\tCzas udziału w spotkaniu\n"+
		"\"Kuba\" Kowalski\t30 min.\n"+
		"Jan Nowak\t1 godz.\n"+
		"Ewa Lis\t2 godz.\n"+
		"3. Działania podczas spotkania\n")

	_, err := NewProcessingService(nil, cfg, zaptest.NewLogger(t)).ProcessFile(context.Background(), input, cfg.OutputPath)
	var readErr *source.ReadError
	require.ErrorAs(t, err, &readErr)
	assert.ErrorContains(t, err, "read input")

	_, statErr := os.Stat(cfg.OutputPath)
	assert.True(t, os.IsNotExist(statErr), "no output on read failure")
}

func TestProcessWriteFailureIsRecorded(t *testing.T) {
	cfg := testConfig(t)
	db := openDB(t, cfg)
	dir := t.TempDir()
	input := filepath.Join(dir, "raport.csv")
	writeUTF16(t, input, meetingExport)
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	svc := NewProcessingService(db, cfg, zaptest.NewLogger(t))
	res, err := svc.ProcessFile(context.Background(), input, filepath.Join(blocker, "out.csv"))
	require.NoError(t, err)
	assert.False(t, res.Written)
	assert.Error(t, res.WriteErr)

	run, err := db.GetRun(res.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, string(internal.RunWriteFailed), run.Status)
}

func TestProcessInvalidRowPolicies(t *testing.T) {
	export := "2. Uczestnicy\n" +
		"Imię i nazwisko\tCzas udziału w spotkaniu\n" +
		"Jan Kowalski\t1 godz.\n" +
		"\t20 min.\n" +
		"Adam Nowak\t2 godz.\n" +
		"3. Działania podczas spotkania\n"

	for _, tc := range []struct {
		policy string
		want   int
	}{
		{config.InvalidRowsHalt, 1},
		{config.InvalidRowsSkip, 2},
	} {
		t.Run(tc.policy, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.InvalidRowPolicy = tc.policy
			input := filepath.Join(t.TempDir(), "raport.csv")
			writeUTF16(t, input, export)

			res, err := NewProcessingService(nil, cfg, zaptest.NewLogger(t)).ProcessFile(context.Background(), input, cfg.OutputPath)
			require.NoError(t, err)
			assert.Len(t, res.Participants, tc.want)
			assert.Equal(t, 1, res.Dropped)
		})
	}
}

func storeMail(t *testing.T, cfg config.Config, db *storage.DB, messageID, subject, fileName string, attachment []byte) internal.ReportRow {
	t.Helper()
	var b strings.Builder
	b.WriteString("From: teams@example.com\r\nTo: nauczyciel@example.com\r\n")
	b.WriteString("Subject: " + subject + "\r\nMIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/mixed; boundary=\"B\"\r\n\r\n")
	b.WriteString("--B\r\nContent-Type: text/plain; charset=utf-8\r\n\r\nW załączniku.\r\n")
	b.WriteString("--B\r\nContent-Type: application/octet-stream\r\n")
	b.WriteString("Content-Disposition: attachment; filename=\"" + fileName + "\"\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
	b.WriteString(base64.StdEncoding.EncodeToString(attachment) + "\r\n--B--\r\n")

	require.NoError(t, os.MkdirAll(cfg.RawMailDir, 0o755))
	rawPath := filepath.Join(cfg.RawMailDir, strings.Trim(messageID, "<>")+".eml")
	require.NoError(t, os.WriteFile(rawPath, []byte(b.String()), 0o644))

	report, err := db.UpsertReport("imap", messageID, subject, "teams@example.com", "2024-09-06T10:00:00Z", "hash-"+messageID, rawPath, ReportFetched)
	require.NoError(t, err)
	return report
}

func TestProcessPendingReports(t *testing.T) {
	cfg := testConfig(t)
	db := openDB(t, cfg)

	blob, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(meetingExport))
	require.NoError(t, err)
	report := storeMail(t, cfg, db, "<r1@example.com>", "Raport obecności 5TP", "raport-obecnosci.csv", blob)
	invoice := storeMail(t, cfg, db, "<r2@example.com>", "Faktura", "faktura.csv", []byte("x"))

	svc := NewProcessingService(db, cfg, zaptest.NewLogger(t))
	reports, participants, err := svc.ProcessPending(context.Background(), 10, "imap")
	require.NoError(t, err)
	assert.Equal(t, 1, reports)
	assert.Equal(t, 2, participants)

	got, err := db.MustReportByProviderMessageID("imap", report.MessageID)
	require.NoError(t, err)
	assert.Equal(t, ReportProcessed, got.Status)

	got, err = db.MustReportByProviderMessageID("imap", invoice.MessageID)
	require.NoError(t, err)
	assert.Equal(t, ReportSkipped, got.Status)

	out := filepath.Join(cfg.OutputDir, "1__r1@example.com_.csv")
	blob, err = os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(blob), "Kowalski,Jan,Tak,1 godz. 10 min.")

	runs, err := db.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.NotNil(t, runs[0].ReportID)
	assert.Equal(t, report.ID, *runs[0].ReportID)
}

func TestProcessPendingOnlyTakesRequestedProvider(t *testing.T) {
	cfg := testConfig(t)
	db := openDB(t, cfg)

	for _, id := range []string{"<g1@example.com>", "<g2@example.com>"} {
		_, err := db.UpsertReport("gmail", id, "Raport obecności", "teams@example.com", "2024-09-01T10:00:00Z", "hash-"+id, filepath.Join(cfg.RawMailDir, "missing.eml"), ReportFetched)
		require.NoError(t, err)
	}
	blob, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(meetingExport))
	require.NoError(t, err)
	report := storeMail(t, cfg, db, "<r1@example.com>", "Raport obecności 5TP", "raport-obecnosci.csv", blob)

	reports, participants, err := NewProcessingService(db, cfg, zaptest.NewLogger(t)).ProcessPending(context.Background(), 1, "imap")
	require.NoError(t, err)
	assert.Equal(t, 1, reports)
	assert.Equal(t, 2, participants)

	got, err := db.MustReportByProviderMessageID("imap", report.MessageID)
	require.NoError(t, err)
	assert.Equal(t, ReportProcessed, got.Status)

	untouched, err := db.ListReportsByStatus(ReportFetched, "gmail", 10)
	require.NoError(t, err)
	assert.Len(t, untouched, 2)
}
