package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"arxidemo/internal/app"
	"arxidemo/internal/config"
	"arxidemo/internal/contact"
	"arxidemo/internal/db"
	"arxidemo/internal/domain"
	"arxidemo/internal/repo"
	"arxidemo/internal/server"
	"arxidemo/internal/session"
	"arxidemo/internal/tour"
)

var rootCmd = &cobra.Command{
	Use:   "arxidemo",
	Short: "Arxitest interactive demo service",
	Long: `arxidemo runs the Arxitest guided product demo.
- Tour: a fixed sequence of 15 steps; each step permits only the controls it highlights.
- Session: one visitor's in-memory demo world (teams, projects, stories, test cases, suites, executions).
- Timers: project imports, test executions and AI drafts complete after short simulated delays.
- Contact: demo requests are relayed to a form service with a per-client cooldown.
- Event log: session and contact activity, view with 'arxidemo log tail'.`,
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("ARXIDEMO")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int64("seed", 0, "random seed (0 seeds from the clock)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("seed", rootCmd.PersistentFlags().Lookup("seed"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tourCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(contactCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logCmd())
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the demo HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				secret, err := a.JWTSecret()
				if err != nil {
					return err
				}
				if addr == "" {
					addr = a.Config.Server.Addr
				}
				if basePath == "" {
					basePath = a.Config.Server.BasePath
				}
				reg, err := a.Registry(viper.GetInt64("seed"))
				if err != nil {
					return err
				}
				defer reg.Close()
				handler, err := server.New(server.Config{
					Registry: reg,
					Relay:    a.Relay(),
					Repo:     a.Repo,
					BasePath: basePath,
					Auth:     server.AuthConfig{JWTSecret: secret, TokenTTL: a.Config.Sessions.TokenTTL},
					Logger:   a.Log,
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				a.Log.Info("serving demo API", "url", "http://"+addr+basePath, "docs", "/docs", "max_sessions", a.Config.Sessions.Max)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from config)")
	return cmd
}

func tourCmd() *cobra.Command {
	t := &cobra.Command{Use: "tour", Short: "Inspect and rehearse the guided tour"}
	t.AddCommand(tourStepsCmd())
	t.AddCommand(tourWalkCmd())
	return t
}

func tourStepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "List the tour steps and the actions each permits",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := tour.Steps()
			if viper.GetBool("json") {
				type stepOut struct {
					ID        tour.StepID   `json:"id"`
					Target    string        `json:"target"`
					Title     string        `json:"title"`
					Category  tour.Category `json:"category"`
					Permitted []string      `json:"permitted"`
				}
				out := make([]stepOut, 0, len(steps))
				for _, s := range steps {
					out = append(out, stepOut{ID: s.ID, Target: s.Target, Title: s.Title, Category: s.Category, Permitted: patterns(s.Permitted)})
				}
				return printJSON(out)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"#", "Step", "Target", "Category", "Title", "Permitted"})
			for i, s := range steps {
				tw.AppendRow(table.Row{i + 1, s.ID, s.Target, s.Category, s.Title, strings.Join(patterns(s.Permitted), ", ")})
			}
			tw.Render()
			return nil
		},
	}
}

func patterns(ps []tour.Pattern) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.String())
	}
	return out
}

func tourWalkCmd() *cobra.Command {
	opts := walkOptions{}
	var source string
	cmd := &cobra.Command{
		Use:   "walk",
		Short: "Drive a session through the whole tour on a virtual clock",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			src, err := domain.ParseSource(source)
			if err != nil {
				return err
			}
			opts.Source = src
			opts.Settings = app.TourSettings(cfg)
			opts.Seed = seed()
			opts.Start = time.Now()
			res, err := walk(opts)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"rows": res.Rows, "state": res.State})
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.SetTitle("Walkthrough")
			tw.AppendHeader(table.Row{"At", "Step", "Action", "Applied"})
			for _, r := range res.Rows {
				tw.AppendRow(table.Row{r.At, r.Step, r.Action, r.Applied})
			}
			tw.Render()
			renderCounts(res.State)
			renderNotifications(res.State, opts.Start.Add(res.Elapsed))
			renderExecutions(res.State)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Team, "team", "QA Squad", "team name to create")
	cmd.Flags().StringVar(&opts.Project, "project", "Storefront", "project name to create")
	cmd.Flags().StringVar(&source, "source", "github", "project source (manual, github, jira, taiga)")
	cmd.Flags().StringVar(&opts.TestCase, "test-case", "", "test case name (default: the AI draft)")
	return cmd
}

func renderCounts(st tour.State) {
	c := st.Views().Counts
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle("Entities")
	tw.AppendHeader(table.Row{"Teams", "Projects", "Stories", "Test cases", "Test suites", "Executions"})
	tw.AppendRow(table.Row{c.Teams, c.Projects, c.Stories, c.TestCases, c.TestSuites, c.Executions})
	tw.Render()
}

func renderNotifications(st tour.State, now time.Time) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle("Notifications")
	tw.AppendHeader(table.Row{"Kind", "Message", "When"})
	for _, n := range st.Notifications {
		tw.AppendRow(table.Row{n.Kind, n.Message, humanize.RelTime(n.CreatedAt, now, "ago", "from now")})
	}
	tw.Render()
}

func renderExecutions(st tour.State) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle("Executions")
	tw.AppendHeader(table.Row{"ID", "Name", "Status", "Passed", "Failed", "Total", "Duration"})
	for _, e := range st.Store.Executions {
		tw.AppendRow(table.Row{e.ID, e.Name, e.Status, e.Passed, e.Failed, e.TestCases, e.Duration})
	}
	tw.Render()
}

func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <execution-id>",
		Short: "Generate a test report for a fixture execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := session.New("report", session.Options{Rand: rand.New(rand.NewSource(seed()))})
			defer s.Close()
			report, err := s.Report(args[0])
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(report)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.SetTitle(report.ID)
			tw.AppendHeader(table.Row{"Test", "Status", "Duration", "Error"})
			for _, r := range report.Results {
				tw.AppendRow(table.Row{r.Name, r.Status, r.Duration, r.Error})
			}
			sum := report.Summary
			tw.AppendFooter(table.Row{
				fmt.Sprintf("%d tests", sum.Total),
				fmt.Sprintf("%d passed / %d failed / %d skipped", sum.Passed, sum.Failed, sum.Skipped),
				sum.Duration,
				"",
			})
			tw.Render()
			return nil
		},
	}
}

func contactCmd() *cobra.Command {
	c := &cobra.Command{Use: "contact", Short: "Demo request relay"}
	var clientKey string
	send := &cobra.Command{
		Use:   "send <email>",
		Short: "Send a demo request through the configured relay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				out, err := a.Relay().Submit(ctx, contact.Request{Email: args[0], ClientKey: clientKey, UserAgent: "arxidemo-cli"})
				var cooldown *contact.CooldownError
				if errors.As(err, &cooldown) {
					return fmt.Errorf("%w (retry %s)", err, humanize.Time(cooldown.Until))
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Println(out.Message)
				return nil
			})
		},
	}
	send.Flags().StringVar(&clientKey, "client", "cli", "client key the cooldown is scoped to")
	status := &cobra.Command{
		Use:   "status [client]",
		Short: "Show how long a client still has to wait",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := "cli"
			if len(args) == 1 {
				key = args[0]
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				remaining, err := a.Relay().Remaining(ctx, key)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"client": key, "remaining_seconds": int(remaining.Round(time.Second).Seconds())})
				}
				if remaining == 0 {
					fmt.Printf("%s can request a demo now\n", key)
					return nil
				}
				fmt.Printf("%s can request again %s\n", key, humanize.Time(time.Now().Add(remaining)))
				return nil
			})
		},
	}
	reset := &cobra.Command{
		Use:   "reset <client>",
		Short: "Lift a client's cooldown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.Relay().Reset(ctx, args[0])
			})
		},
	}
	c.AddCommand(send, status, reset)
	return c
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "Config lives in arxidemo.yml in the workspace; built-in defaults apply when the file is absent.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default arxidemo.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate arxidemo.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load(viper.GetString("workspace"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func logCmd() *cobra.Command {
	l := &cobra.Command{Use: "log", Short: "Event log"}
	l.AddCommand(logTailCmd())
	return l
}

func logTailCmd() *cobra.Command {
	var n int
	var f repo.EventFilter
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Repo.LatestEvents(ctx, n, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "When", "Type", "Entity", "Actor", "Payload"})
				for _, e := range items {
					when := e.TS
					if ts, err := time.Parse(time.RFC3339Nano, e.TS); err == nil {
						when = humanize.Time(ts)
					}
					tw.AppendRow(table.Row{e.ID, when, e.Type, e.EntityKind + "/" + e.EntityID, e.ActorID, e.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type filter")
	cmd.Flags().StringVar(&f.EntityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id")
	return cmd
}

// --- helpers ---

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	workspace := viper.GetString("workspace")
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		return err
	}
	a, err := app.Open(ctx, workspace, newLogger())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func newLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func seed() int64 {
	if s := viper.GetInt64("seed"); s != 0 {
		return s
	}
	return time.Now().UnixNano()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
