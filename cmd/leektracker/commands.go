package main

import (
	"errors"
	"fmt"
	"io"
	"leekwars-tracker/internal/constants"
	"leekwars-tracker/internal/domain"
	"leekwars-tracker/internal/service"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newStatsCmd(a *app) *cobra.Command {
	var (
		limit    int
		status   string
		opponent int64
		recent   bool
	)
	cmd := &cobra.Command{
		Use:   "stats <leek_id>",
		Short: "Print the fight summary of a leek",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(true, func(cmd *cobra.Command, sess *service.Session, _ []string) error {
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			if opponent > 0 {
				detail, err := a.stats.Opponent(ctx, sess, opponent)
				if err != nil {
					return err
				}
				printOpponent(out, detail)
				return nil
			}

			if status != "" {
				s, err := domain.ParseStatus(status)
				if err != nil {
					return err
				}
				list, err := a.stats.Opponents(ctx, sess, s)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s opponents (%d)\n", s, len(list))
				printOpponents(out, list)
				return nil
			}

			if recent {
				fights, err := a.stats.RecentFights(ctx, sess, limit)
				if err != nil {
					return err
				}
				printFights(out, fights)
				return nil
			}

			return printSummary(cmd, a.stats, sess, limit)
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", constants.DefaultTopLimit, "rows per section")
	cmd.Flags().StringVar(&status, "status", "", "list opponents with this status (beatable, even, dangerous, unknown)")
	cmd.Flags().Int64Var(&opponent, "opponent", 0, "show one opponent in detail")
	cmd.Flags().BoolVar(&recent, "recent", false, "list the most recent fights only")
	return cmd
}

func printSummary(cmd *cobra.Command, stats *service.StatsService, sess *service.Session, limit int) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	global, err := stats.Global(ctx, sess)
	if err != nil {
		return err
	}
	top, err := stats.TopOpponents(ctx, sess, limit)
	if err != nil {
		return err
	}
	best, err := stats.BestMatchups(ctx, sess, constants.DefaultBestMinFights, constants.DefaultBestMinWinRate)
	if err != nil {
		return err
	}
	worst, err := stats.WorstMatchups(ctx, sess, constants.DefaultWorstMinFights, constants.DefaultWorstMaxWinRate)
	if err != nil {
		return err
	}
	fights, err := stats.RecentFights(ctx, sess, limit)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Leek %d\n", global.LeekID)
	fmt.Fprintf(out, "Fights: %d (W %d / L %d / D %d)  win rate %s\n",
		global.TotalFights, global.Wins, global.Losses, global.Draws, percent(global.WinRate))
	fmt.Fprintf(out, "Opponents tracked: %d  beatable %d  dangerous %d\n",
		global.OpponentsTracked, global.Beatable, global.Dangerous)

	fmt.Fprintln(out, "\nMost fought")
	printOpponents(out, top)
	fmt.Fprintln(out, "\nBest matchups")
	printOpponents(out, best)
	fmt.Fprintln(out, "\nWorst matchups")
	printOpponents(out, worst)
	fmt.Fprintln(out, "\nRecent fights")
	printFights(out, fights)
	return nil
}

func printOpponents(out io.Writer, list []domain.OpponentStats) {
	if len(list) == 0 {
		fmt.Fprintln(out, "  (none)")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tNAME\tLEVEL\tW\tL\tD\tWIN RATE\tSTATUS")
	for _, o := range list {
		fmt.Fprintf(w, "  %d\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			o.OpponentID, o.OpponentName, optional(o.OpponentLevel), o.Wins, o.Losses, o.Draws, percent(o.WinRate), o.Status)
	}
	w.Flush()
}

func printFights(out io.Writer, fights []domain.FightRecord) {
	if len(fights) == 0 {
		fmt.Fprintln(out, "  (none)")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  FIGHT\tDATE\tOPPONENT\tRESULT\tTURNS")
	for _, f := range fights {
		fmt.Fprintf(w, "  %d\t%s\t%s (%d)\t%s\t%s\n",
			f.FightID, domain.FormatTimestamp(f.Timestamp), f.OpponentName, f.OpponentID, f.Result, optional(f.Duration))
	}
	w.Flush()
}

func printOpponent(out io.Writer, d *service.OpponentDetail) {
	fmt.Fprintf(out, "Opponent %d %s (level %s)\n", d.OpponentID, d.OpponentName, optional(d.OpponentLevel))
	fmt.Fprintf(out, "Fights: %d (W %d / L %d / D %d)  win rate %s  status %s\n",
		d.TotalFights, d.Wins, d.Losses, d.Draws, percent(d.WinRate), d.Status)
	fmt.Fprintf(out, "Difficulty: %d/100\n", d.Difficulty)
	if d.FirstFought != nil && d.LastFought != nil {
		fmt.Fprintf(out, "Fought from %s to %s\n", domain.FormatTimestamp(*d.FirstFought), domain.FormatTimestamp(*d.LastFought))
	}

	results := make([]string, 0, len(d.Trend.Results))
	for _, r := range d.Trend.Results {
		results = append(results, r.String()[:1])
	}
	fmt.Fprintf(out, "Trend: %s over the last %d fights (%s) %s\n",
		d.Trend.Label, d.Trend.RecentFights, percent(d.Trend.RecentWinRate), strings.Join(results, ""))
}

func percent(rate float64) string {
	return strconv.FormatFloat(rate*100, 'f', 1, 64) + "%"
}

func optional(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}

func newMigrateCmd(a *app) *cobra.Command {
	var (
		all  bool
		file string
	)
	cmd := &cobra.Command{
		Use:   "migrate [<leek_id>]",
		Short: "Import opponent_tracker_<leek_id>.json files into the history store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("give either a leek_id or --all: %w", domain.ErrValidation)
			}
			if !all {
				leekID, err := parseID("leek_id", args[0])
				if err != nil {
					return err
				}
				if err := a.load(); err != nil {
					return err
				}
				path := file
				if path == "" {
					path = service.LegacyPath(a.cfg.DataDir, leekID)
				}
				// the store is created on open, so a missing file must fail first
				if _, err := os.Stat(path); err != nil {
					if errors.Is(err, os.ErrNotExist) {
						return fmt.Errorf("tracker file %s: %w", path, domain.ErrNotFound)
					}
					return fmt.Errorf("failed to stat tracker file %s: %w: %w", path, domain.ErrIO, err)
				}
				return a.withStore(false, func(cmd *cobra.Command, sess *service.Session, _ []string) error {
					result, err := a.migration.Migrate(cmd.Context(), sess, path)
					if err != nil {
						return err
					}
					printMigration(cmd.OutOrStdout(), result)
					return nil
				})(cmd, args)
			}

			if file != "" {
				return fmt.Errorf("--file cannot be combined with --all: %w", domain.ErrValidation)
			}
			if err := a.load(); err != nil {
				return err
			}
			results, err := a.migration.MigrateAll(cmd.Context(), a.cfg.DataDir)
			for _, result := range results {
				printMigration(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d file(s)\n", len(results))
			return err
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "migrate every tracker file in the data directory")
	cmd.Flags().StringVar(&file, "file", "", "tracker file to read instead of the one in the data directory")
	return cmd
}

func printMigration(out io.Writer, r *service.MigrationResult) {
	fmt.Fprintf(out, "leek %d: %d opponent(s) from %s, %d stats row(s)\n", r.LeekID, r.Opponents, r.SourcePath, r.StatsRows)
	if r.BackupPath != "" {
		fmt.Fprintf(out, "  backup: %s\n", r.BackupPath)
	}
	if r.Warning != "" {
		fmt.Fprintf(out, "  warning: %s\n", r.Warning)
	}
}

func newIngestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <leek_id> [<dir>]",
		Short: "Record every saved fight payload of a directory",
		Long:  "Record every <fight_id>_data.json of a directory. The directory defaults to <fight_logs_dir>/<leek_id>.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: a.withStore(false, func(cmd *cobra.Command, sess *service.Session, args []string) error {
			dir := filepath.Join(a.cfg.FightLogsDir, strconv.FormatInt(sess.LeekID(), 10))
			if len(args) == 1 {
				dir = args[0]
			}
			summary, err := a.ingest.IngestDirectory(cmd.Context(), sess, dir)
			printSummaryCounts(cmd.OutOrStdout(), dir, summary)
			return err
		}),
	}
}

func printSummaryCounts(out io.Writer, dir string, s domain.BatchSummary) {
	fmt.Fprintf(out, "%s: %d payload(s)\n", dir, s.Total())
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "  ingested\t%d\n", s.Ingested)
	fmt.Fprintf(w, "  skipped (already present)\t%d\n", s.SkippedAlreadyPresent)
	fmt.Fprintf(w, "  skipped (malformed)\t%d\n", s.SkippedMalformed)
	fmt.Fprintf(w, "  errors\t%d\n", s.Errors)
	w.Flush()
}

func newRebuildCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild <leek_id>",
		Short: "Recompute opponent statistics from the fight history",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(false, func(cmd *cobra.Command, sess *service.Session, _ []string) error {
			n, err := a.history.Rebuild(cmd.Context(), sess)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rebuilt %d opponent row(s)\n", n)
			return nil
		}),
	}
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <leek_id>",
		Short: "Check the opponent statistics against the fight history",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(true, func(cmd *cobra.Command, sess *service.Session, _ []string) error {
			violations, err := a.history.Verify(cmd.Context(), sess)
			if err != nil {
				return err
			}
			for _, v := range violations {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			if len(violations) > 0 {
				return fmt.Errorf("%d violation(s) found, run rebuild to repair: %w", len(violations), domain.ErrIntegrity)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		}),
	}
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <leek_id> <file.csv>",
		Short: "Write the fight history as CSV",
		Args:  cobra.ExactArgs(2),
		RunE: a.withStore(true, func(cmd *cobra.Command, sess *service.Session, args []string) (err error) {
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("failed to create %s: %w: %w", args[0], domain.ErrIO, err)
			}
			defer func() {
				err = errors.Join(err, f.Close())
			}()

			n, err := a.stats.ExportCSV(cmd.Context(), sess, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d fight(s) to %s\n", n, args[0])
			return nil
		}),
	}
}

func newSelectCmd(a *app) *cobra.Command {
	var strategy string
	cmd := &cobra.Command{
		Use:   "select <leek_id> <opponent_id>...",
		Short: "Order candidate opponents by preference",
		Args:  cobra.MinimumNArgs(2),
		RunE: a.withStore(true, func(cmd *cobra.Command, sess *service.Session, args []string) error {
			s, err := service.ParseStrategy(strategy)
			if err != nil {
				return err
			}
			candidates, err := parseIDs("opponent_id", args)
			if err != nil {
				return err
			}
			preferred, err := a.stats.PreferredOpponents(cmd.Context(), sess, candidates, s)
			if err != nil {
				return err
			}
			for _, id := range preferred {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		}),
	}
	names := make([]string, 0, len(service.Strategies))
	for _, s := range service.Strategies {
		names = append(names, string(s))
	}
	cmd.Flags().StringVar(&strategy, "strategy", string(service.StrategySmart), "one of "+strings.Join(names, ", "))
	return cmd
}

func newFetchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <leek_id> <fight_id>...",
		Short: "Download fights from the arena, save them and record them",
		Args:  cobra.MinimumNArgs(2),
		RunE: a.withStore(false, func(cmd *cobra.Command, sess *service.Session, args []string) error {
			fightIDs, err := parseIDs("fight_id", args)
			if err != nil {
				return err
			}
			results, err := a.fetch.FetchAll(cmd.Context(), sess, fightIDs)
			for _, r := range results {
				outcome := "recorded"
				if r.Outcome == domain.RecordSkipped {
					outcome = "already present"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "fight %d: %s (%s)\n", r.FightID, outcome, r.DataPath)
			}
			return err
		}),
	}
}
