package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/htsmatch/db"
	"github.com/teranos/htsmatch/sym"
)

// DbCmd groups match store maintenance commands.
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: sym.DB + " Manage the match store",
	Long: sym.DB + ` db - Match store maintenance

Examples:
  htsmatch db stats       # Path, size, schema version and row counts
  htsmatch db migrate     # Apply pending migrations`,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show match store statistics",
	RunE:  runDbStats,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runDbMigrate,
}

func init() {
	DbCmd.AddCommand(dbStatsCmd)
	DbCmd.AddCommand(dbMigrateCmd)
}

func runDbStats(cmd *cobra.Command, args []string) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	conn, _, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	stats, err := db.GetStats(conn, cfg.Database.Path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Match Store\n", sym.DB)
	fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Fprintf(out, "Database Path:   %s\n", stats.Path)
	fmt.Fprintf(out, "Size:            %s\n", humanBytes(stats.SizeBytes))
	fmt.Fprintf(out, "Schema Version:  %s\n", stats.SchemaVersion)
	fmt.Fprintf(out, "Matches:         %d\n", stats.Matches)
	fmt.Fprintf(out, "Log Entries:     %d\n", stats.LogEntries)
	return nil
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	conn, _, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	stats, err := db.GetStats(conn, cfg.Database.Path)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s at schema version %s\n", cfg.Database.Path, stats.SchemaVersion)
	return nil
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
