package cmd

import (
	"context"
	"fmt"
	"os"

	"membership-portal/core/config"
	"membership-portal/core/logger"
	"membership-portal/feature/integrity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fixFlag bool

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Perform integrity checks on the portal's stores",
	Long:  `Checks the photo bucket, the database schema and the legacy document store.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) > 0 {
			cmd.Help()
			return
		}
		runIntegrityChecks(cmd.Context(), true, true, true)
	},
}

// storageCmd represents the integrity storage command
var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Check and fix the photo bucket",
	Run: func(cmd *cobra.Command, args []string) {
		runIntegrityChecks(cmd.Context(), true, false, false)
	},
}

// schemaCmd represents the integrity schema command
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Check the users, credentials and announcements tables",
	Run: func(cmd *cobra.Command, args []string) {
		runIntegrityChecks(cmd.Context(), false, true, false)
	},
}

// legacyCmd represents the integrity legacy command
var legacyCmd = &cobra.Command{
	Use:   "legacy",
	Short: "Check the legacy document store",
	Run: func(cmd *cobra.Command, args []string) {
		runIntegrityChecks(cmd.Context(), false, false, true)
	},
}

func init() {
	RootCmd.AddCommand(integrityCmd)
	integrityCmd.AddCommand(storageCmd, schemaCmd, legacyCmd)

	storageCmd.Flags().BoolVar(&fixFlag, "fix", false, "Create the bucket when missing")
}

func runIntegrityChecks(ctx context.Context, runStorage, runSchema, runLegacy bool) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	st, err := openStores(ctx, cfg, logg)
	if err != nil {
		logg.Fatal("Failed to open stores", zap.Error(err))
	}
	defer st.close()

	svc := integrity.NewService(st.storage, cfg.Storage, st.db, st.redis, logg)

	if runStorage {
		logg.Info("Checking photo bucket...")
		report, err := svc.CheckStorage(ctx)
		if err != nil {
			logg.Fatal("Storage check failed", zap.Error(err))
		}

		if report.Exists {
			logg.Info("Photo bucket is present.", zap.String("bucket", report.Bucket))
		} else {
			logg.Warn("Photo bucket missing", zap.String("bucket", report.Bucket))

			if fixFlag {
				logg.Info("Creating photo bucket...")
				if _, err := svc.FixStorage(ctx); err != nil {
					logg.Fatal("Failed to create bucket", zap.Error(err))
				}
				logg.Info("Photo bucket created successfully.")
			} else {
				logg.Info("Run integrity storage --fix to create the bucket.")
			}
		}
	}

	if runSchema {
		logg.Info("Checking database schema...")
		report, err := svc.CheckSchema()
		if err != nil {
			logg.Error("Schema check failed", zap.Error(err))
		} else if report.Matched {
			logg.Info("Schema matches expected definition.", zap.String("driver", report.Driver))
		} else {
			logg.Warn("Schema mismatches found", zap.String("driver", report.Driver))
			for table, tblReport := range report.Tables {
				if tblReport.Status != "ok" && len(tblReport.MissingColumns) > 0 {
					logg.Warn("Missing Columns", zap.String("table", table), zap.Strings("columns", tblReport.MissingColumns))
				}
			}
			for _, e := range report.Errors {
				logg.Error("Inspection Error", zap.String("error", e))
			}
		}
	}

	if runLegacy {
		logg.Info("Checking legacy store...")
		report, err := svc.CheckLegacy(ctx)
		if err != nil {
			logg.Error("Legacy check failed", zap.Error(err))
		} else if report.Reachable {
			logg.Info("Legacy store reachable.",
				zap.Float64("latency_ms", report.LatencyMS),
				zap.Int64("keys", report.Keys),
			)
		} else {
			logg.Warn("Legacy store unreachable", zap.String("error", report.Error))
		}
	}
}
