package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/pmoinsight/internal/contract"
	"github.com/huangsam/pmoinsight/schema"
)

// PrintRules outputs rules in evaluation order.
func PrintRules(rules []schema.Rule, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, rules)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRulesCSV(w, rules)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return errParquetUnsupported
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if err := writeRulesTable(w, rules, cfg); err != nil {
				return err
			}
			_, err := fmt.Fprintf(w, "Showing %d rules\n", len(rules))
			return err
		}, "Wrote table")
	}
}

func activeLabel(active bool) string {
	if active {
		return "yes"
	}
	return "no"
}

func writeRulesTable(w io.Writer, rules []schema.Rule, cfg *contract.Config) error {
	// ID + Priority + Name (capped at 30) + Type + Active
	paramWidth := getMaxTableTextWidth(cfg, 60)
	headers := []string{"ID", "Priority", "Name", "Type", "Active", "Parameters"}
	rows := make([][]string, 0, len(rules))
	for _, r := range rules {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			strconv.Itoa(r.Priority),
			contract.TruncateText(r.Name, 30),
			string(r.RuleType),
			activeLabel(r.IsActive),
			contract.TruncateText(schema.FormatParameters(r.Parameters), paramWidth),
		})
	}
	return writeTable(w, headers, rows, false)
}

func writeRulesCSV(w io.Writer, rules []schema.Rule) error {
	header := []string{"id", "name", "description", "rule_type", "priority", "is_active", "parameters", "created_at", "updated_at"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range rules {
			rec := []string{
				strconv.FormatInt(r.ID, 10),
				r.Name,
				r.Description,
				string(r.RuleType),
				strconv.Itoa(r.Priority),
				strconv.FormatBool(r.IsActive),
				schema.FormatParameters(r.Parameters),
				r.CreatedAt.Format(contract.DateTimeFormat),
				r.UpdatedAt.Format(contract.DateTimeFormat),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
