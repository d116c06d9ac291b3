package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/config"
	"github.com/ekaya-inc/ekaya-relate/pkg/models"
	"github.com/ekaya-inc/ekaya-relate/pkg/report"
	"github.com/ekaya-inc/ekaya-relate/pkg/services"
)

// sourceFlags describe which tables to load.
type sourceFlags struct {
	sourceType string
	path       string
	sourceJSON string
	set        map[string]string
	tables     []string
	rowLimit   int
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.sourceType, "source", "s", "", "source type (csv, postgres, mssql, sqlite, duckdb)")
	cmd.Flags().StringVarP(&f.path, "path", "p", "", "file or directory to load (csv, sqlite, duckdb)")
	cmd.Flags().StringVar(&f.sourceJSON, "source-json", "", "loader config as a JSON object")
	cmd.Flags().StringToStringVar(&f.set, "set", nil, "loader config entry key=value (repeatable)")
	cmd.Flags().StringSliceVar(&f.tables, "tables", nil, "only load these tables")
	cmd.Flags().IntVar(&f.rowLimit, "row-limit", 0, "maximum rows read per table (0 reads all)")
	_ = cmd.MarkFlagRequired("source")
}

// request merges the flags into an AnalysisRequest. Later sources win:
// --source-json, then --set, then the dedicated flags.
func (f *sourceFlags) request() (services.AnalysisRequest, error) {
	cfg := map[string]any{}
	if f.sourceJSON != "" {
		if err := json.Unmarshal([]byte(f.sourceJSON), &cfg); err != nil {
			return services.AnalysisRequest{}, fmt.Errorf("--source-json: %w", err)
		}
	}
	for k, v := range f.set {
		cfg[k] = parseValue(v)
	}
	if f.path != "" {
		cfg["path"] = f.path
	}
	if len(f.tables) > 0 {
		cfg["tables"] = f.tables
	}
	if f.rowLimit > 0 {
		cfg["row_limit"] = f.rowLimit
	}
	return services.AnalysisRequest{
		SourceType: strings.ToLower(strings.TrimSpace(f.sourceType)),
		Config:     cfg,
	}, nil
}

// parseValue turns --set values into the types loaders expect for ports and flags.
func parseValue(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// featureFlags override the matching config switches for one invocation.
type featureFlags struct {
	validate   bool
	embeddings bool
	store      bool
}

func (f *featureFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.validate, "validate", false, "validate candidates with the configured LLM")
	cmd.Flags().BoolVar(&f.embeddings, "embeddings", false, "add the embedding similarity signal")
	cmd.Flags().BoolVar(&f.store, "store", false, "save the run to the results store")
}

func (f *featureFlags) apply(cfg *config.Config) {
	cfg.LLM.Validate = cfg.LLM.Validate || f.validate
	cfg.Embedding.Enabled = cfg.Embedding.Enabled || f.embeddings
	cfg.Database.Enabled = cfg.Database.Enabled || f.store
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	var (
		source   sourceFlags
		features featureFlags
		format   string
		minConf  float64
		tier     string
		limit    int
		profiles bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Infer primary keys and relationships of a data source",
		Example: `  ekaya-relate analyze -s csv -p ./data
  ekaya-relate analyze -s postgres --set url=postgres://localhost/app --tier high -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			if minConf < 0 || minConf > 1 {
				return fmt.Errorf("--min-confidence must be between 0 and 1")
			}
			if tier != "" && !models.IsValidConfidenceTier(models.ConfidenceTier(tier)) {
				return fmt.Errorf("--tier must be high, medium or low")
			}
			req, err := source.request()
			if err != nil {
				return err
			}

			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			features.apply(cfg)

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.analysis.Analyze(ctx, req, progressLogger(logger))
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}
			logger.Info("Analysis complete",
				zap.String("run_id", result.RunID.String()),
				zap.Int("tables", result.Summary.Tables),
				zap.Int("candidates", result.Summary.Candidates),
				zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)))

			doc := report.Build(result, report.Options{
				Tiers:         a.tiers,
				MinConfidence: minConf,
				Tier:          models.ConfidenceTier(tier),
				Limit:         limit,
				Profiles:      profiles,
			})
			return report.Render(cmd.OutOrStdout(), doc, f)
		},
	}

	source.register(cmd)
	features.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", string(report.FormatTerminal), "output format (text, json, yaml)")
	cmd.Flags().Float64Var(&minConf, "min-confidence", 0, "hide candidates below this confidence")
	cmd.Flags().StringVar(&tier, "tier", "", "only show candidates in this tier (high, medium, low)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n candidates (0 shows all)")
	cmd.Flags().BoolVar(&profiles, "profiles", false, "include column profiles in the report")
	return cmd
}

func newProfileCmd(root *rootOptions) *cobra.Command {
	var (
		source sourceFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Profile columns and infer primary keys without scoring pairs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			req, err := source.request()
			if err != nil {
				return err
			}

			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			// Profiling never uses the optional collaborators.
			cfg.LLM.Validate, cfg.Embedding.Enabled, cfg.Database.Enabled = false, false, false

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.analysis.Profile(ctx, req)
			if err != nil {
				return fmt.Errorf("profiling failed: %w", err)
			}
			return report.Render(cmd.OutOrStdout(), report.BuildProfile(result), f)
		},
	}

	source.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", string(report.FormatTerminal), "output format (text, json, yaml)")
	return cmd
}

// progressLogger logs each new pipeline stage at info and every step at debug.
func progressLogger(logger *zap.Logger) services.ProgressCallback {
	var last string
	return func(current, total int, message string) {
		if message != last {
			last = message
			logger.Info(message, zap.Int("total", total))
		}
		logger.Debug("Progress", zap.Int("current", current), zap.Int("total", total))
	}
}
