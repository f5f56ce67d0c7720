package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCmd_Use(t *testing.T) {
	assert.Equal(t, "extract", extractCmd.Use)
}

func TestExtractCmd_Short(t *testing.T) {
	assert.Equal(t, "Dump raw source records as NDJSON", extractCmd.Short)
}

func TestExtractCmd_Long(t *testing.T) {
	assert.Contains(t, extractCmd.Long, "NDJSON")
	assert.Contains(t, extractCmd.Long, "quarry load")
}

func TestExtractCmd_HasSourceFlag(t *testing.T) {
	flag := extractCmd.Flags().Lookup("source")
	require.NotNil(t, flag, "source flag should exist")
	assert.Equal(t, "s", flag.Shorthand)
}

func TestExtractCmd_HasOutFlag(t *testing.T) {
	flag := extractCmd.Flags().Lookup("out")
	require.NotNil(t, flag, "out flag should exist")
	assert.Equal(t, "o", flag.Shorthand)
	assert.Equal(t, "-", flag.DefValue)
}

func TestExtractCmd_WritesRecordsToStdout(t *testing.T) {
	mock := &mockIngestOrchestrator{
		records: []string{`{"source":"jira","source_id":"PROJ-1"}`},
	}
	cleanup := setupIngestTest(mock)
	defer cleanup()

	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs([]string{"extract"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	// Records on stdout, progress on stderr, so a piped dump stays clean.
	assert.Contains(t, out.String(), `"PROJ-1"`)
	assert.NotContains(t, out.String(), "Extracted")
	assert.Contains(t, errOut.String(), "Extracted 1 record(s)")
}

func TestExtractCmd_WritesRecordsToFile(t *testing.T) {
	mock := &mockIngestOrchestrator{
		records: []string{`{"source":"teams","source_id":"msg-1"}`},
	}
	cleanup := setupIngestTest(mock)
	defer cleanup()

	path := filepath.Join(t.TempDir(), "dump.ndjson")

	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs([]string{"extract", "--out", path})
	defer func() {
		rootCmd.SetArgs(nil)
		extractOut = "-"
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.NotContains(t, out.String(), "msg-1")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg-1"`)
}

func TestExtractCmd_RejectsUnknownSource(t *testing.T) {
	cleanup := setupIngestTest(&mockIngestOrchestrator{})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"extract", "--source", "gitlab"})
	defer func() {
		rootCmd.SetArgs(nil)
		extractSources = nil
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), `source "gitlab"`)
}

func TestExtractCmd_ServiceNotConfigured(t *testing.T) {
	oldIngest := ingestService
	ingestService = nil
	defer func() {
		ingestService = oldIngest
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"extract"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ingest service not configured")
}

func TestExtractCmd_ServiceError(t *testing.T) {
	mock := &mockIngestOrchestrator{
		records: []string{`{"source":"jira"}`, `{"source":"jira"}`},
		err:     errors.New("status 500"),
	}
	cleanup := setupIngestTest(mock)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"extract"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "extract failed after 2 record(s)")
}
