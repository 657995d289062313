// Package main provides the CLI entrypoint for xpradar.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/xpradar/internal/braille"
	"github.com/verte-zerg/xpradar/internal/config"
	"github.com/verte-zerg/xpradar/internal/engine"
	"github.com/verte-zerg/xpradar/internal/logging"
	"github.com/verte-zerg/xpradar/internal/model"
	"github.com/verte-zerg/xpradar/internal/radar"
	"github.com/verte-zerg/xpradar/internal/stats"
	"github.com/verte-zerg/xpradar/internal/statsui"
	"github.com/verte-zerg/xpradar/internal/store"
	"github.com/verte-zerg/xpradar/internal/vault"
	"github.com/verte-zerg/xpradar/internal/watch"
)

const (
	defaultSubStatTag   = "substat"
	defaultMainStatTag  = "stat"
	defaultTemplate     = "substat tem"
	defaultMultiplier   = 100.0
	defaultExponent     = 1.5
	defaultRatio        = 0.2
	defaultWorkers      = 8
	defaultStartupDelay = time.Second
	defaultHistoryLast  = 20
)

var (
	configPath  string
	vaultPath   string
	dbPath      string
	logFile     string
	debugMode   bool
	subStatTag  string
	mainStatTag string
	template    string
	multiplier  float64
	exponent    float64
	ratio       float64
	workers     int

	syncForce  bool
	syncDryRun bool

	radarSVG     string
	radarNoColor bool

	historyLast int

	watchNoStartup bool
)

// runConfig is the merged view of flags and the config file.
type runConfig struct {
	VaultPath    string
	DBPath       string
	LogFile      string
	Workers      int
	SyncOnStart  bool
	StartupDelay time.Duration
	Settings     model.Settings
	Chart        radar.SVGOptions
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "xpradar",
		Short:         "XP and leveling for your notes",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runSyncCmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/xpradar/config.toml)")
	flags.StringVar(&vaultPath, "vault", "", "vault directory")
	flags.StringVar(&dbPath, "db", "", "award ledger database (default: $XDG_DATA_HOME/xpradar/xpradar.db)")
	flags.StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")
	flags.BoolVar(&debugMode, "debug", false, "enable debug logging")
	flags.StringVar(&subStatTag, "sub-stat-tag", defaultSubStatTag, "tag marking sub-stat notes")
	flags.StringVar(&mainStatTag, "main-stat-tag", defaultMainStatTag, "tag marking main-stat notes")
	flags.StringVar(&template, "template", defaultTemplate, "sub-stat note name excluded as a template")
	flags.Float64Var(&multiplier, "multiplier", defaultMultiplier, "XP multiplier of the leveling curve")
	flags.Float64Var(&exponent, "exponent", defaultExponent, "exponent of the leveling curve")
	flags.Float64Var(&ratio, "ratio", defaultRatio, "share of sub-stat XP credited to its main stat (0-1)")
	flags.IntVar(&workers, "workers", defaultWorkers, "concurrent note reads and writes")
	addSyncFlags(rootCmd)

	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newRadarCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func addSyncFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&syncForce, "force", false, "rewrite every stat note, not just changed ones")
	cmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "compute stats without writing notes or recording the pass")
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Credit completed XP tasks and update stat notes",
		Args:  cobra.NoArgs,
		RunE:  runSyncCmd,
	}
	addSyncFlags(cmd)
	return cmd
}

func runSyncCmd(cmd *cobra.Command, _ []string) error {
	rc, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	rc.Settings.ForceUpdate = rc.Settings.ForceUpdate || syncForce

	logger, err := newLogger(rc.LogFile)
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	st, eng, err := openEngine(rc, logger)
	if err != nil {
		return err
	}
	defer closeStore(st)

	res, err := eng.Run(cmd.Context(), rc.Settings, engine.RunOptions{DryRun: syncDryRun})
	if res == nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	if perr := printPass(cmd.OutOrStdout(), res); perr != nil {
		return perr
	}
	if err != nil {
		return fmt.Errorf("failed to record pass: %w", err)
	}
	return nil
}

func printPass(w io.Writer, res *engine.Result) error {
	if err := stats.RenderSubStats(w, res.Snapshot); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderMainStats(w, res.Snapshot); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if _, err := fmt.Fprintln(w, res.Report.Summary()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newRadarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "radar",
		Short: "Render the main-stat radar from a live (non-writing) pass",
		Args:  cobra.NoArgs,
		RunE:  runRadarCmd,
	}
	cmd.Flags().StringVar(&radarSVG, "svg", "", "write an SVG chart to this file instead of printing")
	cmd.Flags().BoolVar(&radarNoColor, "no-color", false, "disable ANSI colours")
	return cmd
}

func runRadarCmd(cmd *cobra.Command, _ []string) error {
	rc, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(rc.LogFile)
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	st, eng, err := openEngine(rc, logger)
	if err != nil {
		return err
	}
	defer closeStore(st)

	res, err := eng.Run(cmd.Context(), rc.Settings, engine.RunOptions{DryRun: true})
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}
	mains := res.Snapshot.MainStats

	if radarSVG != "" {
		var buf bytes.Buffer
		if err := radar.RenderSVG(&buf, mains, rc.Chart); err != nil {
			return fmt.Errorf("failed to render chart: %w", err)
		}
		if err := os.WriteFile(radarSVG, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("failed to write chart: %w", err)
		}
		logErrf("Wrote %s\n", radarSVG)
		return nil
	}

	out := cmd.OutOrStdout()
	opts := radar.TextOptions{
		MaxLevel:  rc.Chart.MaxLevel,
		GridCount: rc.Chart.GridCount,
		Color:     !radarNoColor && braille.UseColor(out, false),
	}
	if err := radar.RenderText(out, mains, opts); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Open the stats dashboard",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	rc, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	logPath := rc.LogFile
	if logPath == "" {
		logPath = config.DefaultLogPath()
	}
	logger, err := newLogger(logPath)
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	st, eng, err := openEngine(rc, logger)
	if err != nil {
		return err
	}
	defer closeStore(st)

	m := statsui.NewModel(eng, st, statsui.Config{
		Vault:    rc.VaultPath,
		Settings: rc.Settings,
		Last:     defaultHistoryLast,
		MaxLevel: rc.Chart.MaxLevel,
	})
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded passes",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().IntVar(&historyLast, "last", defaultHistoryLast, "limit to last N passes (0 for all)")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	fileCfg, err := config.LoadConfig(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "db", &dbPath, fileCfg.App.DB)

	st, err := store.Open(resolveDBPath(dbPath))
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeStore(st)

	ctx := cmd.Context()
	passes, err := st.ListPasses(ctx, historyLast)
	if err != nil {
		return fmt.Errorf("failed to load passes: %w", err)
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderPasses(out, passes); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	awarded, err := st.AwardedCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count credited tasks: %w", err)
	}
	if _, err := fmt.Fprintf(out, "%d tasks credited in total\n", awarded); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run a pass whenever notes in the vault change",
		Args:  cobra.NoArgs,
		RunE:  runWatchCmd,
	}
	cmd.Flags().BoolVar(&watchNoStartup, "no-startup-sync", false, "skip the pass normally run after startup")
	return cmd
}

func runWatchCmd(cmd *cobra.Command, _ []string) error {
	rc, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(rc.LogFile)
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	v, st, eng, err := openVaultEngine(rc, logger)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	syncFn := func(ctx context.Context) ([]string, error) {
		res, err := eng.Run(ctx, rc.Settings, engine.RunOptions{})
		if res == nil {
			return nil, err
		}
		if _, werr := fmt.Fprintln(out, res.Report.Summary()); werr != nil {
			logger.Warn("failed to write notification", zap.Error(werr))
		}
		return res.Report.Written, err
	}

	w, err := watch.New(v.Root(), syncFn, watch.Options{
		SyncOnStart:  rc.SyncOnStart && !watchNoStartup,
		StartupDelay: rc.StartupDelay,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to watch vault: %w", err)
	}
	logErrln("Watching for changes. Press Ctrl+C to stop.")
	select {
	case <-ctx.Done():
	case <-w.Done():
	}
	w.Stop()
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := resolveConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// loadRunConfig reads the config file and overlays it with explicitly set
// flags.
func loadRunConfig(cmd *cobra.Command) (runConfig, error) {
	fileCfg, err := config.LoadConfig(resolveConfigPath())
	if err != nil {
		return runConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	return mergeConfig(cmd, fileCfg)
}

func mergeConfig(cmd *cobra.Command, fileCfg config.FileConfig) (runConfig, error) {
	applyStringConfig(cmd, "vault", &vaultPath, fileCfg.Vault.Path)
	applyStringConfig(cmd, "sub-stat-tag", &subStatTag, fileCfg.Vault.SubStatTag)
	applyStringConfig(cmd, "main-stat-tag", &mainStatTag, fileCfg.Vault.MainStatTag)
	applyStringConfig(cmd, "template", &template, fileCfg.Vault.Template)
	applyFloatConfig(cmd, "multiplier", &multiplier, fileCfg.XP.Multiplier)
	exp, err := fileCfg.XP.Exponent()
	if err != nil {
		return runConfig{}, err
	}
	applyFloatConfig(cmd, "exponent", &exponent, exp)
	applyFloatConfig(cmd, "ratio", &ratio, fileCfg.XP.MainToSubRatio)
	applyBoolConfig(cmd, "debug", &debugMode, fileCfg.App.Debug)
	applyIntConfig(cmd, "workers", &workers, fileCfg.App.Workers)
	applyStringConfig(cmd, "db", &dbPath, fileCfg.App.DB)
	applyStringConfig(cmd, "log-file", &logFile, fileCfg.App.LogFile)

	delay, err := fileCfg.App.Delay()
	if err != nil {
		return runConfig{}, err
	}
	rc := runConfig{
		VaultPath:    config.ExpandHome(strings.TrimSpace(vaultPath)),
		DBPath:       resolveDBPath(dbPath),
		LogFile:      config.ExpandHome(logFile),
		Workers:      workers,
		SyncOnStart:  true,
		StartupDelay: defaultStartupDelay,
		Settings: model.Settings{
			SubStatTag:     subStatTag,
			MainStatTag:    mainStatTag,
			TemplateName:   template,
			XPMultiplier:   multiplier,
			LevelExponent:  exponent,
			MainToSubRatio: ratio,
			Debug:          debugMode,
		},
		Chart: radar.DefaultSVGOptions(),
	}
	if fileCfg.XP.ForceUpdate != nil {
		rc.Settings.ForceUpdate = *fileCfg.XP.ForceUpdate
	}
	if fileCfg.App.AutoSyncOnStartup != nil {
		rc.SyncOnStart = *fileCfg.App.AutoSyncOnStartup
	}
	if delay != nil {
		rc.StartupDelay = *delay
	}
	fileCfg.Chart.Apply(&rc.Chart)

	if err := validateConfig(rc); err != nil {
		return runConfig{}, err
	}
	return rc, nil
}

func resolveConfigPath() string {
	if configPath != "" {
		return config.ExpandHome(configPath)
	}
	return config.DefaultConfigPath()
}

func resolveDBPath(path string) string {
	if strings.TrimSpace(path) == "" {
		return config.DefaultDBPath()
	}
	return config.ExpandHome(path)
}

func newLogger(path string) (*zap.Logger, error) {
	return logging.New(logging.Options{Debug: debugMode, Path: path})
}

func syncLogger(logger *zap.Logger) {
	if err := logger.Sync(); err != nil {
		// Sync fails on stderr for some terminals; nothing is lost.
		_ = err
	}
}

func openEngine(rc runConfig, logger *zap.Logger) (*store.Store, *engine.Engine, error) {
	_, st, eng, err := openVaultEngine(rc, logger)
	return st, eng, err
}

func openVaultEngine(rc runConfig, logger *zap.Logger) (*vault.FS, *store.Store, *engine.Engine, error) {
	v, err := vault.Open(rc.VaultPath, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	st, err := store.Open(rc.DBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open db: %w", err)
	}
	eng := engine.New(v, st, engine.Options{Workers: rc.Workers, Logger: logger})
	return v, st, eng, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		logErrf("failed to close db: %v\n", err)
	}
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	chart := radar.DefaultSVGOptions()
	return fmt.Sprintf(`# xpradar configuration
# Uncomment a value to enable it. CLI flags override config values.

[vault]
# path = "~/Notes"              # Vault directory
# sub-stat-tag = %q        # Tag marking sub-stat notes
# main-stat-tag = %q          # Tag marking main-stat notes
# template = %q        # Sub-stat note name ignored as a template

[xp]
# multiplier = %.1f             # XP multiplier of the leveling curve
# level-formula = "%g"          # Curve exponent; level-exponent wins when both are set
# level-exponent = %.1f
# main-to-sub-ratio = %.1f         # Share of sub-stat XP credited to its main stat (0-1)
# force-update-files = false     # Rewrite every stat note on each sync

[app]
# debug = false
# auto-sync-on-startup = true    # Run a pass when watch starts
# startup-delay = "%s"
# workers = %d
# db = ""                        # Award ledger (default $XDG_DATA_HOME/xpradar/xpradar.db)
# log-file = ""

[chart]
# size = %d
# fill-color = %q
# stroke-color = %q
# grid-color = %q
# label-color = %q
# bg-color = %q
# point-radius = %.1f
# fill-opacity = %.1f
# grid-count = %d
# font-family = %q
# stroke-width = %.1f
# show-progress-bars = %t
# max-level = %d
`,
		defaultSubStatTag,
		defaultMainStatTag,
		defaultTemplate,
		defaultMultiplier,
		defaultExponent,
		defaultExponent,
		defaultRatio,
		defaultStartupDelay,
		defaultWorkers,
		chart.Size,
		chart.FillColor,
		chart.StrokeColor,
		chart.GridColor,
		chart.LabelColor,
		chart.BgColor,
		chart.PointRadius,
		chart.FillOpacity,
		chart.GridCount,
		chart.FontFamily,
		chart.StrokeWidth,
		chart.ShowProgressBars,
		chart.MaxLevel,
	)
}

func validateConfig(rc runConfig) error {
	if rc.VaultPath == "" {
		return fmt.Errorf("--vault is required (or set path in the [vault] config section)")
	}
	if _, err := engine.ValidateSettings(rc.Settings); err != nil {
		return err
	}
	if rc.Workers < 1 {
		return fmt.Errorf("--workers must be >= 1")
	}
	if rc.StartupDelay < 0 {
		return fmt.Errorf("startup-delay must be >= 0")
	}
	if rc.Chart.GridCount < 1 {
		return fmt.Errorf("chart grid-count must be >= 1")
	}
	if rc.Chart.Size <= 0 {
		return fmt.Errorf("chart size must be > 0")
	}
	if rc.Chart.MaxLevel < 1 {
		return fmt.Errorf("chart max-level must be >= 1")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
