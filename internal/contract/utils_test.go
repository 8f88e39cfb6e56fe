package contract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/pmoinsight/schema"
)

func TestGetPlainLabel(t *testing.T) {
	assert.Equal(t, "Critical", GetPlainLabel(schema.CriticalSeverity))
	assert.Equal(t, "Warning", GetPlainLabel(schema.WarningSeverity))
	assert.Equal(t, "Info", GetPlainLabel(schema.InfoSeverity))
	assert.Equal(t, "odd", GetPlainLabel(schema.Severity("odd")))
}

func TestGetColorLabel(t *testing.T) {
	tests := []struct {
		sev   schema.Severity
		label string
	}{
		{schema.InfoSeverity, "Info"},
		{schema.WarningSeverity, "Warning"},
		{schema.CriticalSeverity, "Critical"},
	}

	for _, tt := range tests {
		t.Run(string(tt.sev), func(t *testing.T) {
			assert.Contains(t, GetColorLabel(tt.sev), tt.label)
		})
	}
}

func TestGetStatusLabel(t *testing.T) {
	assert.Equal(t, "open", GetStatusLabel(false, true))
	assert.Equal(t, "resolved", GetStatusLabel(true, false))
	assert.Contains(t, GetStatusLabel(true, true), "resolved")
}

func TestSelectOutputFile(t *testing.T) {
	t.Run("empty path returns stdout", func(t *testing.T) {
		file, err := SelectOutputFile("")
		require.NoError(t, err)
		assert.Equal(t, os.Stdout, file)
	})

	t.Run("valid path creates file", func(t *testing.T) {
		tempFile := filepath.Join(t.TempDir(), "test_output.txt")

		file, err := SelectOutputFile(tempFile)
		require.NoError(t, err)
		assert.NotNil(t, file)
		_ = file.Close()

		_, err = os.Stat(tempFile)
		assert.NoError(t, err)
	})
}

func TestGetDBFilePath(t *testing.T) {
	path := GetDBFilePath()
	assert.Contains(t, path, ".pmoinsight.db")

	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, homeDir), "path %s should start with home dir %s", path, homeDir)
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", TruncateText("short", 10))
	assert.Equal(t, "Budget ...", TruncateText("Budget overrun on ITPR-100", 10))
	assert.Equal(t, "abcdef", TruncateText("abcdef", 3))
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"yes", "TRUE", "1"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.True(t, v, s)
	}
	for _, s := range []string{"no", "False", "0"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.False(t, v, s)
	}
	_, err := ParseBoolString("maybe")
	assert.Error(t, err)
}
