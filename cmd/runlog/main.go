package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/tracklab/runlog/internal/config"
	"github.com/tracklab/runlog/internal/experiment"
	"github.com/tracklab/runlog/internal/recorder"
	logpkg "github.com/tracklab/runlog/pkg/log"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "runlog",
		Short: "Versioned experiment metrics CLI",
		Long:  "runlog records key/value metrics into versioned experiment directories as CSV.",
	}
	rootCmd.AddCommand(newRecordCmd(), newVersionsCmd(), newPathCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig builds the effective config: file, then env, then flags.
func loadConfig(cmd *cobra.Command) (cfgpkg.Config, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := cfgpkg.Load(cfgPath)
	if err != nil {
		return cfgpkg.Config{}, err
	}
	cfgpkg.FromEnv(&cfg)
	if cmd.Flags().Changed("root") {
		cfg.RootDir, _ = cmd.Flags().GetString("root")
	}
	if cmd.Flags().Changed("name") {
		cfg.Name, _ = cmd.Flags().GetString("name")
	}
	if cmd.Flags().Changed("version") {
		cfg.Version, _ = cmd.Flags().GetString("version")
	}
	if cmd.Flags().Changed("flush-every") {
		cfg.FlushEveryNSteps, _ = cmd.Flags().GetInt("flush-every")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat, _ = cmd.Flags().GetString("log-format")
	}
	if err := cfg.Validate(); err != nil {
		return cfgpkg.Config{}, err
	}
	return cfg, nil
}

func newLogger(cfg cfgpkg.Config) logpkg.Logger {
	level, err := logpkg.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logpkg.InfoLevel
	}
	opts := []logpkg.Option{logpkg.WithLevel(level)}
	if cfg.LogFormat == "json" {
		opts = append(opts, logpkg.WithJSON())
	}
	return logpkg.NewLogger(opts...)
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "config file (JSON or YAML)")
	cmd.Flags().String("root", ".", "root directory for experiment logs")
	cmd.Flags().String("name", "", "experiment name (empty collapses the path segment)")
	cmd.Flags().String("version", "auto", "version: auto, an integer, or a literal name")
	cmd.Flags().String("log-level", "info", "log level: debug|info|warn|error")
	cmd.Flags().String("log-format", "text", "log format: text|json")
}

func newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record metrics into a versioned experiment directory",
		Long: "Record buffers metric records and flushes them to metrics.csv. Metrics come\n" +
			"from repeated --metric k=v flags, or from stdin as JSON objects (one per\n" +
			"line) when --stdin is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			flushEvery := cfg.FlushEveryNSteps
			if !cmd.Flags().Changed("flush-every") && flushEvery == 0 {
				// one-shot invocations should always persist
				flushEvery = 1
			}
			logger := newLogger(cfg)
			rec, err := recorder.New(recorder.Options{
				RootDir:          cfg.RootDir,
				Name:             cfg.Name,
				Version:          experiment.ParseVersion(cfg.Version),
				FlushEveryNSteps: flushEvery,
				Logger:           logger,
			})
			if err != nil {
				return err
			}

			useStdin, _ := cmd.Flags().GetBool("stdin")
			if useStdin {
				if err := recordFromStdin(rec); err != nil {
					return err
				}
			} else {
				pairs, _ := cmd.Flags().GetStringArray("metric")
				if len(pairs) == 0 {
					return fmt.Errorf("no metrics given; use --metric k=v or --stdin")
				}
				metrics, err := parseMetricFlags(pairs)
				if err != nil {
					return err
				}
				step, _ := cmd.Flags().GetInt("step")
				if err := rec.LogMetrics(metrics, step); err != nil {
					return err
				}
			}
			if err := rec.Finalize(); err != nil {
				return err
			}
			fmt.Println(rec.MetricsPath())
			return nil
		},
	}
	addCommonFlags(cmd)
	cmd.Flags().Int("flush-every", 1, "flush after every Nth record")
	cmd.Flags().StringArray("metric", nil, "metric as key=value (repeatable)")
	cmd.Flags().Int("step", recorder.StepAuto, "explicit step; negative auto-assigns")
	cmd.Flags().Bool("stdin", false, "read JSON-object records from stdin, one per line")
	return cmd
}

func newVersionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List version directories under a root/name",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			versions, err := experiment.List(cfg.RootDir, cfg.Name)
			if err != nil {
				return err
			}
			for _, v := range versions {
				fmt.Println(v)
			}
			return nil
		},
	}
	addCommonFlags(cmd)
	return cmd
}

func newPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Print the log directory a root/name/version resolves to",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			_, logDir, err := experiment.Resolve(cfg.RootDir, cfg.Name, experiment.ParseVersion(cfg.Version))
			if err != nil {
				return err
			}
			fmt.Println(logDir)
			return nil
		},
	}
	addCommonFlags(cmd)
	return cmd
}

// parseMetricFlags turns k=v pairs into a metrics map, preferring numeric
// interpretations of the value.
func parseMetricFlags(pairs []string) (map[string]any, error) {
	metrics := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --metric %q; want key=value", p)
		}
		metrics[k] = parseScalar(v)
	}
	return metrics, nil
}

func parseScalar(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// recordFromStdin logs one record per JSON line. A "step" member selects the
// explicit step for that record; without it steps auto-increment.
func recordFromStdin(rec *recorder.Recorder) error {
	sc := bufio.NewScanner(os.Stdin)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(text), &obj); err != nil {
			return fmt.Errorf("stdin line %d: %w", line, err)
		}
		step := recorder.StepAuto
		if raw, ok := obj["step"]; ok {
			f, isNum := raw.(float64)
			if !isNum || f != float64(int(f)) {
				return fmt.Errorf("stdin line %d: step must be an integer", line)
			}
			step = int(f)
			delete(obj, "step")
		}
		if err := rec.LogMetrics(obj, step); err != nil {
			return fmt.Errorf("stdin line %d: %w", line, err)
		}
	}
	return sc.Err()
}
