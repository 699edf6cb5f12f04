package connectors

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"attendance/internal"
	"attendance/internal/storage"
)

type fakeConnector struct {
	messages []internal.FetchedMailMessage
	err      error
	gotLabel string
	gotMax   int
}

func (f *fakeConnector) FetchInbox(_ context.Context, label string, max int) ([]internal.FetchedMailMessage, error) {
	f.gotLabel, f.gotMax = label, max
	return f.messages, f.err
}

func TestFetchAndStore(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "app.db"))
	require.NoError(t, err)
	defer db.Close()

	conn := &fakeConnector{messages: []internal.FetchedMailMessage{
		{Provider: "imap", MessageID: "<a@x>", Subject: "Raport obecności", ReceivedAt: "2024-09-06T10:00:00Z", Raw: []byte("raw-a")},
		{Provider: "imap", MessageID: "<b@x>", Subject: "Inne", ReceivedAt: "2024-09-06T11:00:00Z", Raw: []byte("raw-b")},
	}}
	rawDir := filepath.Join(dir, "raw")
	svc := NewFetchService(db, rawDir, conn, zaptest.NewLogger(t))

	res, err := svc.FetchAndStore(context.Background(), "INBOX", 5)
	require.NoError(t, err)
	assert.Equal(t, FetchResult{Fetched: 2, Stored: 2}, res)
	assert.Equal(t, "INBOX", conn.gotLabel)
	assert.Equal(t, 5, conn.gotMax)

	report, err := db.MustReportByProviderMessageID("imap", "<a@x>")
	require.NoError(t, err)
	assert.Equal(t, "fetched", report.Status)
	blob, err := os.ReadFile(report.RawRef)
	require.NoError(t, err)
	assert.Equal(t, "raw-a", string(blob))

	// fetching the same messages again keeps one report per message
	_, err = svc.FetchAndStore(context.Background(), "INBOX", 5)
	require.NoError(t, err)
	pending, err := db.ListReportsByStatus("fetched", "", 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestFetchAndStoreConnectorError(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("boom")
	svc := NewFetchService(db, t.TempDir(), &fakeConnector{err: boom}, nil)
	_, err = svc.FetchAndStore(context.Background(), "INBOX", 1)
	assert.ErrorIs(t, err, boom)
}
