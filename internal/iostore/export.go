package iostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/pmoinsight/internal/parquet"
	"github.com/huangsam/pmoinsight/schema"
)

// ExecuteInsightsExport writes every insight and generation run to Parquet
// files named <outputFile>.insights.parquet and <outputFile>.generation_runs.parquet.
func ExecuteInsightsExport(ctx context.Context, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	store := Manager.Store()
	if store == nil {
		return errors.New("store is not initialized")
	}

	status, err := store.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get store status: %w", err)
	}
	if status.TableSizes[insightsTable] == 0 && status.TotalRuns == 0 {
		return errors.New("no insight data found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total insights: %d\n", status.TableSizes[insightsTable])
	fmt.Printf("Total generation runs: %d\n", status.TotalRuns)

	insights, err := store.ListInsights(ctx, schema.InsightFilter{})
	if err != nil {
		return fmt.Errorf("failed to retrieve insights: %w", err)
	}
	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to retrieve generation runs: %w", err)
	}

	insightRows := parquet.ConvertInsights(insights)
	insightsFile := outputFile + ".insights.parquet"
	if err := parquet.WriteInsightsParquet(insightRows, insightsFile); err != nil {
		return fmt.Errorf("failed to write insights: %w", err)
	}
	fmt.Printf("Exported %d insights to: %s\n", len(insightRows), insightsFile)

	runRows := parquet.ConvertGenerationRuns(runs)
	runsFile := outputFile + ".generation_runs.parquet"
	if err := parquet.WriteGenerationRunsParquet(runRows, runsFile); err != nil {
		return fmt.Errorf("failed to write generation runs: %w", err)
	}
	fmt.Printf("Exported %d generation runs to: %s\n", len(runRows), runsFile)

	fmt.Println("\nExport complete! The Parquet files can be used with:")
	fmt.Println("  - DuckDB")
	fmt.Println("  - Pandas (via pyarrow)")
	fmt.Println("  - Any other Parquet-compatible tool")

	return nil
}
