package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

var ErrMissing = errors.New("missing required env var")

const (
	InvalidRowsHalt = "halt"
	InvalidRowsSkip = "skip"
)

// SupportedEncodings lists every ATTENDANCE_ENCODING value the text reader
// understands. An empty value means utf16le.
var SupportedEncodings = []string{
	"utf16le", "utf-16le",
	"utf16be", "utf-16be",
	"utf8", "utf-8",
	"windows-1250", "cp1250",
}

type Config struct {
	DBPath     string
	RawMailDir string
	OutputDir  string

	LogLevel  string
	LogFormat string

	// Report extraction. Markers and field names follow the Teams attendance
	// export layout: section "2. Uczestnicy" up to "3. Działania podczas spotkania".
	InputPath        string
	InputType        string
	InputEncoding    string
	OutputPath       string
	StartMarker      string
	StopMarker       string
	FullNameField    string
	DurationField    string
	HourUnit         string
	InvalidRowPolicy string
	CollationLocale  string

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	MailListenerProvider     string
	MailListenerLabel        string
	MailListenerIntervalSec  int
	MailListenerFetchMax     int
	MailListenerProcessBatch int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		RawMailDir: getEnv("MAIL_RAW_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		InputPath:        getEnv("ATTENDANCE_INPUT", ""),
		InputType:        getEnv("ATTENDANCE_INPUT_TYPE", ""),
		InputEncoding:    getEnv("ATTENDANCE_ENCODING", "utf16le"),
		OutputPath:       getEnv("ATTENDANCE_OUTPUT", filepath.Join(cwd, "out", "attendance.csv")),
		StartMarker:      getEnv("ATTENDANCE_START_MARKER", "2. Uczestnicy"),
		StopMarker:       getEnv("ATTENDANCE_STOP_MARKER", "3. Działania podczas spotkania"),
		FullNameField:    getEnv("ATTENDANCE_FULL_NAME_FIELD", "Imię i nazwisko"),
		DurationField:    getEnv("ATTENDANCE_DURATION_FIELD", "Czas udziału w spotkaniu"),
		HourUnit:         getEnv("ATTENDANCE_HOUR_UNIT", "godz"),
		InvalidRowPolicy: getEnv("ATTENDANCE_INVALID_ROWS", InvalidRowsHalt),
		CollationLocale:  getEnv("ATTENDANCE_LOCALE", "pl"),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		MailListenerProvider:     getEnv("MAIL_LISTENER_PROVIDER", "imap"),
		MailListenerLabel:        getEnv("MAIL_LISTENER_LABEL", "INBOX"),
		MailListenerIntervalSec:  getEnvInt("MAIL_LISTENER_INTERVAL_SEC", 60),
		MailListenerFetchMax:     getEnvInt("MAIL_LISTENER_FETCH_MAX", 20),
		MailListenerProcessBatch: getEnvInt("MAIL_LISTENER_PROCESS_BATCH", 20),
	}

	return cfg, nil
}

// Validate checks the extraction settings that have a closed set of values.
func (c Config) Validate() error {
	switch c.InvalidRowPolicy {
	case InvalidRowsHalt, InvalidRowsSkip:
	default:
		return fmt.Errorf("invalid ATTENDANCE_INVALID_ROWS %q (want %s|%s)", c.InvalidRowPolicy, InvalidRowsHalt, InvalidRowsSkip)
	}
	enc := strings.ToLower(strings.TrimSpace(c.InputEncoding))
	known := enc == ""
	for _, e := range SupportedEncodings {
		if e == enc {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unsupported ATTENDANCE_ENCODING %q (want one of %s)", c.InputEncoding, strings.Join(SupportedEncodings, ", "))
	}
	if _, err := language.Parse(c.CollationLocale); err != nil {
		return fmt.Errorf("invalid ATTENDANCE_LOCALE %q: %w", c.CollationLocale, err)
	}
	if err := c.Require("ATTENDANCE_START_MARKER", c.StartMarker); err != nil {
		return err
	}
	if err := c.Require("ATTENDANCE_STOP_MARKER", c.StopMarker); err != nil {
		return err
	}
	if err := c.Require("ATTENDANCE_FULL_NAME_FIELD", c.FullNameField); err != nil {
		return err
	}
	if err := c.Require("ATTENDANCE_DURATION_FIELD", c.DurationField); err != nil {
		return err
	}
	return c.Require("ATTENDANCE_HOUR_UNIT", c.HourUnit)
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s", ErrMissing, name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
