// Package main provides the CLI entrypoint for capview.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/avollmer/capview/internal/capper"
	"github.com/avollmer/capview/internal/chart"
	"github.com/avollmer/capview/internal/config"
	"github.com/avollmer/capview/internal/ingest"
	"github.com/avollmer/capview/internal/model"
	"github.com/avollmer/capview/internal/store"
	"github.com/avollmer/capview/internal/tui"
)

const (
	defaultCap         = 10
	defaultOthersLabel = "Others"
)

var (
	viewDataset string
	viewDim     string
	viewCap     int
	viewBack    bool
	viewOthers  string
	viewTitle   string

	chartWidth int
	chartColor bool

	loadDataset string
	loadMeasure string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "capview",
		Short:         "Capped category chart explorer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runExploreCmd,
	}

	addViewFlags(rootCmd)

	rootCmd.AddCommand(newLoadCmd())
	rootCmd.AddCommand(newChartCmd())
	rootCmd.AddCommand(newDatasetsCmd())
	rootCmd.AddCommand(newDimsCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func addViewFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&viewDataset, "dataset", "", "dataset name")
	cmd.Flags().StringVar(&viewDim, "dim", "", "dimension to group by")
	cmd.Flags().IntVar(&viewCap, "cap", defaultCap, "max categories shown (0 = all)")
	cmd.Flags().BoolVar(&viewBack, "back", false, "keep the lowest-ranked categories instead of the top")
	cmd.Flags().StringVar(&viewOthers, "others", defaultOthersLabel, "label for the collapsed remainder")
	cmd.Flags().StringVar(&viewTitle, "title", "", "chart title")
}

// resolveViewConfig merges flags with the TOML config; flags win.
func resolveViewConfig(cmd *cobra.Command) (model.ViewConfig, error) {
	fileCfg, err := config.LoadFile(config.DefaultConfigPath())
	if err != nil {
		return model.ViewConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "cap", &viewCap, fileCfg.Chart.Cap)
	applyStringConfig(cmd, "others", &viewOthers, fileCfg.Chart.OthersLabel)
	if fileCfg.Chart.TakeFront != nil && !cmd.Flags().Changed("back") {
		viewBack = !*fileCfg.Chart.TakeFront
	}

	if viewDataset == "" {
		return model.ViewConfig{}, fmt.Errorf("--dataset is required")
	}
	if viewDim == "" {
		return model.ViewConfig{}, fmt.Errorf("--dim is required")
	}
	if viewCap < 0 {
		return model.ViewConfig{}, fmt.Errorf("--cap must be >= 0")
	}

	return model.ViewConfig{
		Dataset:     viewDataset,
		Dimension:   viewDim,
		Cap:         viewCap,
		TakeFront:   !viewBack,
		OthersLabel: viewOthers,
		Title:       viewTitle,
	}, nil
}

func runExploreCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveViewConfig(cmd)
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	m := tui.NewModel(st, cfg)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newChartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render a capped chart to stdout",
		Args:  cobra.NoArgs,
		RunE:  runChartCmd,
	}
	addViewFlags(cmd)
	cmd.Flags().IntVar(&chartWidth, "width", 0, "output width (0 = terminal width)")
	cmd.Flags().BoolVar(&chartColor, "color", false, "force color output")
	return cmd
}

func runChartCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveViewConfig(cmd)
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	capVal := capper.Unbounded
	if cfg.Cap > 0 {
		capVal = cfg.Cap
	}
	ch := chart.New(
		chart.SourceFunc(func(ctx context.Context) ([]model.Group, error) {
			return st.GroupTotals(ctx, cfg.Dataset, cfg.Dimension)
		}),
		capper.WithCap[model.Group](capVal),
		capper.WithTakeFront[model.Group](cfg.TakeFront),
		capper.WithOthersLabel[model.Group](cfg.OthersLabel),
	)

	entries, err := ch.Data(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to build chart: %w", err)
	}
	title := cfg.Title
	if title == "" {
		title = fmt.Sprintf("%s by %s", cfg.Dataset, cfg.Dimension)
	}
	if err := ch.RenderWithColor(cmd.OutOrStdout(), title, entries, chartWidth, chartColor); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

func newLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <file.csv>",
		Short: "Load a CSV file into a dataset",
		Args:  cobra.ExactArgs(1),
		RunE:  runLoadCmd,
	}
	cmd.Flags().StringVar(&loadDataset, "dataset", "", "dataset name (default: file name)")
	cmd.Flags().StringVar(&loadMeasure, "measure", "", "measure column (default: first numeric column)")
	return cmd
}

func runLoadCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.LoadFile(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "measure", &loadMeasure, fileCfg.Load.Measure)

	path := args[0]
	name := loadDataset
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open CSV: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logErrf("failed to close CSV: %v\n", cerr)
		}
	}()

	result, err := ingest.ParseCSV(f, loadMeasure)
	if err != nil {
		return fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(result.Records) == 0 {
		return fmt.Errorf("no usable rows in %s", path)
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if _, err := st.ReplaceDataset(cmd.Context(), name, result.MeasureLabel, result.Records); err != nil {
		return fmt.Errorf("failed to store dataset: %w", err)
	}

	logErrf("Loaded %d records into %q (measure: %s)\n", len(result.Records), name, result.MeasureLabel)
	if result.Skipped > 0 {
		logErrf("Skipped %d rows with unusable measure values\n", result.Skipped)
	}
	return nil
}

func newDatasetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List loaded datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := store.Open(config.DefaultDBPath())
			if err != nil {
				return fmt.Errorf("failed to open db: %w", err)
			}
			defer func() {
				if cerr := st.Close(); cerr != nil {
					logErrf("failed to close db: %v\n", cerr)
				}
			}()
			datasets, err := st.ListDatasets(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list datasets: %w", err)
			}
			if len(datasets) == 0 {
				logErrln("No datasets loaded. Load one with: capview load <file.csv>")
				return nil
			}
			for _, ds := range datasets {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d records\tmeasure=%s\n",
					ds.Name, ds.Records, ds.MeasureLabel); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
			}
			return nil
		},
	}
}

func newDimsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dims",
		Short: "List dimensions of a dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if viewDataset == "" {
				return fmt.Errorf("--dataset is required")
			}
			st, err := store.Open(config.DefaultDBPath())
			if err != nil {
				return fmt.Errorf("failed to open db: %w", err)
			}
			defer func() {
				if cerr := st.Close(); cerr != nil {
					logErrf("failed to close db: %v\n", cerr)
				}
			}()
			dims, err := st.ListDimensions(cmd.Context(), viewDataset)
			if err != nil {
				return fmt.Errorf("failed to list dimensions: %w", err)
			}
			if len(dims) == 0 {
				return fmt.Errorf("dataset %q not found or has no dimensions", viewDataset)
			}
			for _, dim := range dims {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), dim); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&viewDataset, "dataset", "", "dataset name")
	return cmd
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
	path := config.DefaultConfigPath()
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

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# capview configuration
# Uncomment a value to enable it. CLI flags override config values.

[chart]
# cap = %d               # Max categories shown (0 = all)
# take-front = true      # Keep the top-ranked categories
# others-label = %q      # Label for the collapsed remainder

[load]
# measure = "amount"     # Default measure column for CSV loads
`,
		defaultCap,
		defaultOthersLabel,
	)
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
