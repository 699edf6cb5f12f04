package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

const export = "1. Podsumowanie\n" +
	"2. Uczestnicy\n" +
	"Imię i nazwisko\tCzas udziału w spotkaniu\n" +
	"Jan Kowalski\t1 godz. 10 min.\n" +
	"Adam Nowak\t30 min.\n" +
	"3. Działania podczas spotkania\n"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{}
	root := newRootCmd(a)
	out := bytes.NewBuffer(nil)
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	a.close()
	return out.String(), err
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DB_PATH", filepath.Join(dir, "app.db"))
	t.Setenv("OUTPUT_DIR", filepath.Join(dir, "out"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("ATTENDANCE_INPUT", "")
	t.Setenv("ATTENDANCE_INVALID_ROWS", "halt")
	return dir
}

func TestRunHistoryExport(t *testing.T) {
	dir := setupEnv(t)
	input := filepath.Join(dir, "raport.csv")
	blob, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(export))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(input, blob, 0o644))
	output := filepath.Join(dir, "wynik.csv")

	stdout, err := execute(t, "run", "--input", input, "--output", output)
	require.NoError(t, err)
	assert.Contains(t, stdout, "run done scanned=3 participants=2 eligible=1 output="+output)

	got, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "Nazwisko,Imię,Status zaświadczenia,Czas uczestnictwa\n"+
		"Kowalski,Jan,Tak,1 godz. 10 min.\n"+
		"Nowak,Adam,Nie,30 min.\n", string(got))

	stdout, err = execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, stdout, "written")

	again := filepath.Join(dir, "again.csv")
	stdout, err = execute(t, "export", "--run", "1", "--out", again)
	require.NoError(t, err)
	assert.Contains(t, stdout, "exported 2 rows")
	copied, err := os.ReadFile(again)
	require.NoError(t, err)
	assert.Equal(t, string(got), string(copied))
}

func TestRunRequiresInput(t *testing.T) {
	setupEnv(t)
	_, err := execute(t, "run")
	assert.ErrorContains(t, err, "--input is required")
}

func TestRunRejectsBadPolicy(t *testing.T) {
	dir := setupEnv(t)
	_, err := execute(t, "run", "--input", filepath.Join(dir, "x.csv"), "--invalid-rows", "ignore")
	assert.ErrorContains(t, err, "ATTENDANCE_INVALID_ROWS")
}

func TestExportUnknownRun(t *testing.T) {
	dir := setupEnv(t)
	_, err := execute(t, "export", "--run", "7", "--out", filepath.Join(dir, "x.csv"))
	assert.ErrorContains(t, err, "run 7 not found")
}
