package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aristath/frontier/internal/modules/history"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import [dir]",
		Short: "Import SYMBOL_PERIOD.csv price files into the database",
		Long: `Reads every *.csv file in dir (the price cache directory by default),
upserts the close prices and invalidates cached statistics.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			dir := a.cfg.PriceCacheDir
			if len(args) == 1 {
				dir = args[0]
			}

			summary, err := container.Importer.ImportDirectory(cmd.Context(), dir)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d rows for %d symbols from %d files\n",
				summary.Rows, len(summary.Symbols), summary.Files)
			if len(summary.Symbols) > 0 {
				fmt.Fprintf(out, "Symbols: %s\n", strings.Join(summary.Symbols, ", "))
			}
			files := make([]string, 0, len(summary.Failed))
			for f := range summary.Failed {
				files = append(files, f)
			}
			sort.Strings(files)
			for _, f := range files {
				fmt.Fprintf(out, "  failed %s: %s\n", f, summary.Failed[f])
			}
			return nil
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var filter history.ListFilter
	var showStats bool
	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "List stored results, or print one by id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := a.open(cmd.Context())
			if err != nil {
				return err
			}

			if showStats {
				stats, err := container.HistoryRepo.Stats(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), stats)
			}

			if len(args) == 1 {
				entry, err := container.HistoryRepo.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), entry)
			}

			entries, err := container.HistoryRepo.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No history entries")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tPERIOD\tSYMBOLS\tCREATED")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					e.ID, e.Kind, e.Period, strings.Join(e.Symbols, ","), e.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&filter.Symbol, "symbol", "", "only entries containing this symbol")
	cmd.Flags().StringVar(&filter.Kind, "kind", "", "only entries of this kind")
	cmd.Flags().BoolVar(&showStats, "stats", false, "print totals, top symbols and recent activity")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", history.DefaultListLimit, "maximum number of entries")
	return cmd
}

func newBackupCmd(a *app) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Upload a database backup to the configured bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if container.BackupService == nil {
				return fmt.Errorf("backups are disabled: set BACKUP_S3_BUCKET")
			}

			if list {
				backups, err := container.BackupService.ListBackups(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), backups)
			}

			info, err := container.BackupService.CreateAndUploadBackup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s (%d bytes)\n", info.Key, info.SizeBytes)
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list existing backups instead of creating one")
	return cmd
}
