package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"

	"github.com/huangsam/pmoinsight/schema"
)

// Color variables for console output.
var (
	CriticalColor = color.New(color.FgRed, color.Bold) // CriticalColor represents standard danger.
	WarningColor  = color.New(color.FgYellow)          // WarningColor represents standard caution, not bold.
	InfoColor     = color.New(color.FgCyan)            // InfoColor represents informational signal.
	ResolvedColor = color.New(color.FgGreen)
)

// GetPlainLabel returns the capitalized severity label used for CSV, JSON
// and table printing.
func GetPlainLabel(sev schema.Severity) string {
	switch sev {
	case schema.CriticalSeverity:
		return "Critical"
	case schema.WarningSeverity:
		return "Warning"
	case schema.InfoSeverity:
		return "Info"
	default:
		return string(sev)
	}
}

// GetColorLabel returns a colored severity label for console tables.
func GetColorLabel(sev schema.Severity) string {
	text := GetPlainLabel(sev)
	switch sev {
	case schema.CriticalSeverity:
		return CriticalColor.Sprint(text)
	case schema.WarningSeverity:
		return WarningColor.Sprint(text)
	default:
		return InfoColor.Sprint(text)
	}
}

// GetStatusLabel renders an insight lifecycle state.
func GetStatusLabel(resolved, useColors bool) string {
	if !resolved {
		return "open"
	}
	if useColors {
		return ResolvedColor.Sprint("resolved")
	}
	return "resolved"
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	log.Fatal().Err(err).Msg(msg)
}

// LogWarn logs a warning.
func LogWarn(msg string, err error) {
	log.Warn().Err(err).Msg(msg)
}

// GetDBFilePath returns the path to the default SQLite database file.
func GetDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".pmoinsight.db"
	}
	return filepath.Join(homeDir, ".pmoinsight.db")
}

// TruncateText truncates text to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so there is room for the ellipsis and one character.
func TruncateText(text string, maxWidth int) string {
	runes := []rune(text)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return text
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
