package imap

import (
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"

	"attendance/internal/config"
)

func TestNewConnectorRequiresCredentials(t *testing.T) {
	_, err := NewConnector(config.Config{IMAPHost: "imap.example.com"})
	assert.ErrorIs(t, err, config.ErrMissing)
}

func TestToFetched(t *testing.T) {
	msg := &imap.Message{
		Uid:          42,
		InternalDate: time.Date(2024, 9, 6, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600)),
		Envelope: &imap.Envelope{
			Subject: "Raport obecności",
			From: []*imap.Address{
				{PersonalName: "Teams", MailboxName: "teams", HostName: "example.com"},
				nil,
				{MailboxName: "noreply", HostName: "example.com"},
			},
		},
	}

	got := toFetched(msg, []byte("raw"))
	assert.Equal(t, Provider, got.Provider)
	assert.Equal(t, "imap-42", got.MessageID)
	assert.Equal(t, "Teams <teams@example.com>, noreply@example.com", got.From)
	assert.Equal(t, "2024-09-06T08:00:00Z", got.ReceivedAt)
	assert.Equal(t, []byte("raw"), got.Raw)
}
