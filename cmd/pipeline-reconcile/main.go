package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/mmdatafocus/dyeing_backend/config"
	"github.com/mmdatafocus/dyeing_backend/models"
	"github.com/mmdatafocus/dyeing_backend/utils"
)

// Recomputes machine status, order totals and invoice ledgers from their
// source rows and records mismatches in reconciliation_reports.
// Exits 2 when any mismatch was found.
func main() {
	migrate := flag.Bool("migrate", false, "Run AutoMigrate on the core tables before checking.")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	if *migrate {
		if err := models.MigrateTable(db); err != nil {
			fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
			os.Exit(1)
		}
	}

	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "PipelineReconcile")

	summary, err := models.RunReconciliationChecks(ctx)
	if err != nil {
		config.LogError(config.GetLogger(), "pipeline-reconcile", "main", "reconciliation failed", nil, err)
		fmt.Fprintf(os.Stderr, "reconciliation failed: %v\n", err)
		os.Exit(1)
	}
	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
	if summary.MismatchesFound > 0 {
		os.Exit(2)
	}
}
