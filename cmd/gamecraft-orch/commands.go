package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/hochfrequenz/gamecraft-orchestrator/internal/bulk"
	"github.com/hochfrequenz/gamecraft-orchestrator/internal/config"
	"github.com/hochfrequenz/gamecraft-orchestrator/internal/domain"
	"github.com/hochfrequenz/gamecraft-orchestrator/internal/logging"
	"github.com/hochfrequenz/gamecraft-orchestrator/internal/manifest"
	"github.com/hochfrequenz/gamecraft-orchestrator/internal/notify"
	"github.com/hochfrequenz/gamecraft-orchestrator/internal/orchestrator"
	"github.com/hochfrequenz/gamecraft-orchestrator/internal/request"
	"github.com/hochfrequenz/gamecraft-orchestrator/internal/runstore"
	"github.com/spf13/cobra"
)

var (
	runImage     string
	runPrompt    string
	runNegative  string
	runActions   string
	runSpeeds    string
	runTier      string
	runPrecision string
	runSeed      string
	runSteps     int
	bulkParallel int
	listStatus   string
	listImage    string
	listLimit    int
)

func init() {
	// run command
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a single inference run",
		RunE:  runRun,
	}
	runCmd.Flags().StringVar(&runImage, "image", "", "source image path (required)")
	runCmd.Flags().StringVar(&runPrompt, "prompt", "", "image prompt (required)")
	runCmd.Flags().StringVar(&runNegative, "negative-prompt", "", "negative prompt override")
	runCmd.Flags().StringVar(&runActions, "actions", "", "space-separated action symbols, e.g. \"w d d d\" (required)")
	runCmd.Flags().StringVar(&runSpeeds, "speeds", "", "space-separated action speeds, e.g. \"0.2 0.2 0.2 0.2\" (required)")
	runCmd.Flags().StringVar(&runTier, "tier", "distilled", "checkpoint tier: original or distilled")
	runCmd.Flags().StringVar(&runPrecision, "precision", "fp16", "precision: fp16 or fp8")
	runCmd.Flags().StringVar(&runSeed, "seed", request.SeedRandom, "seed, or \"random\"")
	runCmd.Flags().IntVar(&runSteps, "infer-steps", 0, "inference steps override (0 = tier default)")
	runCmd.MarkFlagRequired("image")
	runCmd.MarkFlagRequired("prompt")
	runCmd.MarkFlagRequired("actions")
	runCmd.MarkFlagRequired("speeds")
	rootCmd.AddCommand(runCmd)

	// bulk command
	bulkCmd := &cobra.Command{
		Use:   "bulk PLAN",
		Short: "Execute every run of a plan file",
		Args:  cobra.ExactArgs(1),
		RunE:  runBulk,
	}
	bulkCmd.Flags().IntVar(&bulkParallel, "parallel", 1, "maximum concurrent runs")
	rootCmd.AddCommand(bulkCmd)

	// schedule command
	scheduleCmd := &cobra.Command{
		Use:   "schedule PLAN",
		Short: "Run a plan on its cron schedule until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedule,
	}
	scheduleCmd.Flags().IntVar(&bulkParallel, "parallel", 1, "maximum concurrent runs")
	rootCmd.AddCommand(scheduleCmd)

	// list command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs",
		RunE:  runList,
	}
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	listCmd.Flags().StringVar(&listImage, "image", "", "filter by source image")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum rows")
	rootCmd.AddCommand(listCmd)

	// show command
	showCmd := &cobra.Command{
		Use:   "show RUN",
		Short: "Show one run in detail",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
	rootCmd.AddCommand(showCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

// newOrchestrator wires the orchestrator with the run index and the
// configured notifiers.
func newOrchestrator(cfg *config.Config) (*orchestrator.Orchestrator, *runstore.Store, error) {
	logger := logging.NewLogger(cfg.General.LogLevel)
	o := orchestrator.New(cfg, logger)

	if err := os.MkdirAll(cfg.General.ResultsDir, 0o755); err != nil {
		return nil, nil, err
	}

	store, err := runstore.New(cfg.General.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening run index: %w", err)
	}
	o.SetStore(store)

	var notifiers []notify.Notifier
	if cfg.Notifications.Desktop {
		notifiers = append(notifiers, notify.NewDesktopNotifier(true))
	}
	if cfg.Notifications.SlackWebhook != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.Notifications.SlackWebhook))
	}
	if len(notifiers) > 0 {
		o.SetNotifier(notify.NewMultiNotifier(notifiers...))
	}

	return o, store, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func parseSpeeds(s string) ([]float64, error) {
	fields := strings.Fields(s)
	speeds := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("speed %q is not a number", f)
		}
		speeds = append(speeds, v)
	}
	return speeds, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	speeds, err := parseSpeeds(runSpeeds)
	if err != nil {
		return err
	}

	o, store, err := newOrchestrator(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := signalContext()
	defer cancel()

	rec, err := o.Execute(ctx, request.Params{
		ImagePath:      runImage,
		Prompt:         runPrompt,
		NegativePrompt: runNegative,
		Tier:           domain.Tier(runTier),
		Precision:      domain.Precision(runPrecision),
		Seed:           runSeed,
		Actions:        strings.Fields(runActions),
		Speeds:         speeds,
		InferSteps:     runSteps,
		ConfigPath:     configPath,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Run %s: %s\n", rec.ID, rec.Status)
	if rec.VideoPath != "" {
		fmt.Printf("  video:   %s\n", rec.VideoPath)
	}
	if rec.OverlayOutput != "" {
		fmt.Printf("  overlay: %s\n", rec.OverlayOutput)
	}
	fmt.Printf("  manifest: %s\n", rec.SavePath+"/"+manifest.FileName)
	return nil
}

func runBulk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	plan, err := bulk.LoadPlan(args[0])
	if err != nil {
		return err
	}

	o, store, err := newOrchestrator(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	runner := bulk.NewRunner(o, logging.NewLogger(cfg.General.LogLevel))
	runner.Parallel = bulkParallel
	runner.ConfigPath = configPath

	ctx, cancel := signalContext()
	defer cancel()

	summary, err := runner.Run(ctx, plan)
	if err != nil {
		return err
	}

	fmt.Printf("Plan %s: %d runs | %d completed | %d timed out | %d failed\n",
		plan.Name, summary.Total, summary.Completed, summary.TimedOut, summary.Failed)
	return nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	plan, err := bulk.LoadPlan(args[0])
	if err != nil {
		return err
	}

	sched, err := bulk.NewSchedule(plan)
	if err != nil {
		return err
	}

	o, store, err := newOrchestrator(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	logger := logging.NewLogger(cfg.General.LogLevel)
	runner := bulk.NewRunner(o, logger)
	runner.Parallel = bulkParallel
	runner.ConfigPath = configPath

	fmt.Printf("Scheduling plan %s (%s), next run at %s\n",
		plan.Name, plan.Cron, sched.NextRun().Format("2006-01-02 15:04"))

	ctx, cancel := signalContext()
	defer cancel()

	sched.Start(ctx, runner, logger)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := runstore.New(cfg.General.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(runstore.ListOptions{
		Status: listStatus,
		Image:  listImage,
		Limit:  listLimit,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tIMAGE\tACTIONS\tTIER\tSEED\tSTATUS\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.Image, r.ActionTag, r.Tier, r.Seed, r.Status,
			r.StartedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()

	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := runstore.New(cfg.General.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	r, err := store.GetRun(args[0])
	if err != nil {
		return fmt.Errorf("run %s not found: %w", args[0], err)
	}

	fmt.Printf("Run:        %s\n", r.ID)
	fmt.Printf("Image:      %s\n", r.Image)
	fmt.Printf("Prompt:     %s\n", r.Prompt)
	fmt.Printf("Actions:    %s (%s)\n", r.ActionList, r.ActionTag)
	fmt.Printf("Tier:       %s (%d steps)\n", r.Tier, r.InferSteps)
	fmt.Printf("Precision:  %s\n", r.Precision)
	fmt.Printf("Seed:       %d\n", r.Seed)
	fmt.Printf("Status:     %s\n", r.Status)
	fmt.Printf("Save path:  %s\n", r.SavePath)
	if r.VideoPath != "" {
		fmt.Printf("Video:      %s\n", r.VideoPath)
	}
	if r.OverlayPath != "" {
		fmt.Printf("Overlay:    %s\n", r.OverlayPath)
	}
	fmt.Printf("Started:    %s\n", r.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Finished:   %s\n", r.FinishedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Waited:     %ds\n", r.WaitSeconds)

	if m, err := manifest.Read(r.SavePath); err == nil {
		fmt.Printf("Execution:  %ds\n", m.ExecutionTimeSeconds)
	}
	return nil
}
