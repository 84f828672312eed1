package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"io.winapps.healthjournal/internal/aggregator"
	"io.winapps.healthjournal/internal/bootstrap"
	"io.winapps.healthjournal/internal/config"
	"io.winapps.healthjournal/internal/dashboard"
	"io.winapps.healthjournal/internal/dates"
	"io.winapps.healthjournal/internal/db"
	"io.winapps.healthjournal/internal/export"
	firebaseutil "io.winapps.healthjournal/internal/firebase"
	"io.winapps.healthjournal/internal/middleware"
	createmodels "io.winapps.healthjournal/internal/models/create_entry"
	models "io.winapps.healthjournal/internal/models/entry"
	"io.winapps.healthjournal/internal/reminders"
	"io.winapps.healthjournal/internal/store"
)

var (
	userID   string
	timezone string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "healthctl",
		Short:         "Inspect and maintain the health journal from a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", os.Getenv("HEALTHCTL_USER"), "user id whose entries to read")
	rootCmd.PersistentFlags().StringVar(&timezone, "tz", "", "IANA timezone for day boundaries (default DEFAULT_TIMEZONE)")

	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(remindCmd())
	return rootCmd
}

// env holds everything a command needs once configuration is loaded.
type env struct {
	cfg         *config.Config
	logger      *zap.SugaredLogger
	app         *firebase.App
	redisClient *redis.Client
	store       store.Store
	cal         dates.Calendar
	closers     []func()
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.logger.Sync()
}

func openEnv(ctx context.Context, needUser bool) (*env, error) {
	if needUser && strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("--user is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := middleware.NewLogger(cfg.IsDevelopment())
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, logger: logger}

	tz := timezone
	if tz == "" {
		tz = cfg.DefaultTimezone
	}
	loc, err := dates.LoadLocation(tz, time.Local)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.cal = dates.NewCalendar(loc)

	if cfg.FirebaseEnabled {
		if e.app, err = firebaseutil.InitFirebase(ctx, cfg); err != nil {
			e.Close()
			return nil, err
		}
	}
	if cfg.Redis.Enabled {
		if e.redisClient, err = db.InitRedis(cfg.Redis); err != nil {
			e.Close()
			return nil, err
		}
		e.closers = append(e.closers, func() { e.redisClient.Close() })
	}

	s, closeStore, err := bootstrap.OpenStore(ctx, cfg, e.app, e.redisClient, logger)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.closers = append(e.closers, closeStore)
	e.store = s
	return e, nil
}

func addCmd() *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an entry from a JSON document",
		Example: `  healthctl add -u me --data '{"category":"nutrition","datetime":"2024-01-15T12:30",` +
			`"nutrition":{"calories":"450","protein":"30"}}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req createmodels.CreateEntryRequest
			if err := json.Unmarshal([]byte(data), &req); err != nil {
				return fmt.Errorf("invalid entry document: %w", err)
			}
			entry := req.Entry()
			if err := entry.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			e, err := openEnv(ctx, true)
			if err != nil {
				return err
			}
			defer e.Close()

			saved, err := e.store.Append(ctx, userID, e.cal.Stamp(entry))
			if err != nil {
				return err
			}
			fmt.Printf("Added %s entry: %s\n", saved.Category, saved.ID)
			fmt.Printf("  %s\n", aggregator.Describe(saved))
			return nil
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "entry JSON, same shape as the create-entry request")
	cmd.MarkFlagRequired("data")
	return cmd
}

func listCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:       "list [category]",
		Short:     "List one category's entries, newest first",
		Args:      cobra.ExactArgs(1),
		ValidArgs: categoryNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := models.ParseCategory(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			e, err := openEnv(ctx, true)
			if err != nil {
				return err
			}
			defer e.Close()

			entries, err := e.store.List(ctx, userID, cat)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Printf("No %s entries yet. Use 'healthctl add' to create one.\n", cat)
				return nil
			}

			sorted := aggregator.SortByTimestampDesc(entries)
			if limit > 0 && len(sorted) > limit {
				sorted = sorted[:limit]
			}
			for _, en := range sorted {
				fmt.Printf("%s  %s  %s\n", en.ID, e.cal.DateKeyOf(en), truncate(aggregator.Describe(en), 60))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show (0 for all)")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [category] [id]",
		Short: "Delete one entry by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := models.ParseCategory(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			e, err := openEnv(ctx, true)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.store.Delete(ctx, userID, cat, args[1]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s entry %s\n", cat, args[1])
			return nil
		},
	}
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show today's dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, true)
			if err != nil {
				return err
			}
			defer e.Close()

			d := dashboard.NewService(e.store, e.logger).Build(ctx, userID, e.cal)
			fmt.Printf("Dashboard for %s (%s)\n", d.Date, d.Timezone)

			printSection("Nutrition", "", d.Nutrition.Lines)
			printSection("Health", d.Health.Label, d.Health.Lines)
			printSection("Exercise", "", d.Exercise.Lines)
			printSection("Mood", d.Mood.Label, d.Mood.Lines)

			for _, c := range models.Categories {
				if msg, ok := d.Errors[c]; ok {
					fmt.Printf("\n(%s unavailable: %s)\n", c, msg)
				}
			}
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var (
		q     aggregator.HistoryQuery
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the filtered history table, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, true)
			if err != nil {
				return err
			}
			defer e.Close()

			rows, err := dashboard.NewService(e.store, e.logger).History(ctx, userID, e.cal, q)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Println("No entries match.")
				return nil
			}

			if limit > 0 && len(rows) > limit {
				rows = rows[:limit]
			}
			for _, r := range rows {
				fmt.Printf("%s  %-9s  %s\n", r.DateKey, r.Category, truncate(r.Preview, 60))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&q.Type, "type", "t", aggregator.FilterAll, "category to show, or all")
	cmd.Flags().StringVar(&q.Start, "start", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&q.End, "end", "", "last day to include (YYYY-MM-DD)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "number of rows to show (0 for all)")
	return cmd
}

func exportCmd() *cobra.Command {
	var (
		q      aggregator.HistoryQuery
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered history to a spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if format != export.FormatXLSX && format != export.FormatCSV {
				return fmt.Errorf("format must be xlsx or csv")
			}

			ctx := cmd.Context()
			e, err := openEnv(ctx, true)
			if err != nil {
				return err
			}
			defer e.Close()

			rows, err := dashboard.NewService(e.store, e.logger).History(ctx, userID, e.cal, q)
			if err != nil {
				return err
			}

			if out == "" {
				out = fmt.Sprintf("health-history-%s.%s", e.cal.Today(), format)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := export.Write(f, format, e.cal, rows); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			fmt.Printf("Wrote %d rows to %s\n", len(rows), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&q.Type, "type", "t", aggregator.FilterAll, "category to export, or all")
	cmd.Flags().StringVar(&q.Start, "start", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&q.End, "end", "", "last day to include (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&format, "format", "f", export.FormatXLSX, "xlsx or csv")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default health-history-<today>.<format>)")
	return cmd
}

func remindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Send diary reminders now to everyone without a diary entry today",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, false)
			if err != nil {
				return err
			}
			defer e.Close()

			if e.redisClient == nil || e.app == nil {
				return fmt.Errorf("reminders require REDIS_ENABLED and FIREBASE_ENABLED")
			}
			messagingClient, err := firebaseutil.GetMessagingClient(ctx, e.app)
			if err != nil {
				return err
			}

			scheduler := reminders.NewScheduler(reminders.NewRegistry(e.redisClient), e.store, messagingClient, e.logger)
			sent, err := scheduler.RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Sent %d reminders\n", sent)
			return nil
		},
	}
}

func printSection(title, label string, lines []string) {
	if label != "" {
		fmt.Printf("\n%s (%s)\n", title, label)
	} else {
		fmt.Printf("\n%s\n", title)
	}
	for _, l := range lines {
		fmt.Printf("  %s\n", l)
	}
}

func categoryNames() []string {
	names := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		names[i] = string(c)
	}
	return names
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
