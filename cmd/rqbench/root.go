package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gogpu/rq"
	"github.com/gogpu/rq/backend"
	_ "github.com/gogpu/rq/backend/record"
	_ "github.com/gogpu/rq/backend/wgpu"
)

// options are the resolved settings of one invocation.
type options struct {
	configFile string
	verbosity  string
	backend    string

	frames  int
	objects int
	seed    uint64
	caster  bool
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	opts := &options{}

	root := &cobra.Command{
		Use:   "rqbench",
		Short: "Drive synthetic frames through the render queue",
		Long: `rqbench builds a synthetic scene of vertex-array, legacy and particle
drawables, renders it through the batching render queue on a registered
backend, and prints what the queue emitted per frame.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(v, opts); err != nil {
				return err
			}
			return initLogging(opts.verbosity)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "queue config file (YAML)")
	pf.StringP("verbosity", "v", "warn", "log level (debug, info, warn, error)")
	pf.String("backend", backend.BackendRecord, "backend to render on")
	pf.Int("objects", 2000, "objects in the synthetic scene")
	pf.Int("workers", 0, "collection and compile workers (0 = GOMAXPROCS)")
	pf.Duration("timeout", 0, "pipeline compile deadline per frame (0 = none)")
	pf.StringSlice("buckets", nil, "bucket mode ranges as first:last:mode, e.g. 100:200:v1-fast")
	pf.Uint64("seed", 1, "scene random seed")
	pf.Bool("caster", false, "render a shadow caster pass")
	for _, name := range []string{"verbosity", "backend", "objects", "workers", "timeout", "buckets", "seed", "caster"} {
		_ = v.BindPFlag(name, pf.Lookup(name))
	}

	root.AddCommand(newRunCmd(v, opts))
	root.AddCommand(newWarmupCmd(v, opts))
	root.AddCommand(newBackendsCmd())
	return root
}

// initConfig reads the optional config file and the RQBENCH_ environment.
func initConfig(v *viper.Viper, opts *options) error {
	if opts.configFile != "" {
		v.SetConfigFile(opts.configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}
	v.SetEnvPrefix("RQBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	opts.verbosity = v.GetString("verbosity")
	opts.backend = v.GetString("backend")
	opts.objects = v.GetInt("objects")
	opts.seed = v.GetUint64("seed")
	opts.caster = v.GetBool("caster")
	if opts.objects <= 0 {
		return fmt.Errorf("objects must be positive, got %d", opts.objects)
	}
	return nil
}

func initLogging(level string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("verbosity %q: %w", level, err)
	}
	rq.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
	return nil
}

// queueConfig builds the queue config from the config file, then applies
// flag and environment overrides.
func queueConfig(v *viper.Viper, opts *options) (rq.Config, error) {
	cfg := rq.DefaultConfig()
	if opts.configFile != "" {
		loaded, err := rq.LoadConfig(opts.configFile)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if v.IsSet("workers") {
		cfg.Workers = v.GetInt("workers")
	}
	if v.IsSet("timeout") {
		cfg.PipelineTimeout = v.GetDuration("timeout")
	}
	ranges, err := parseBuckets(v.GetStringSlice("buckets"))
	if err != nil {
		return cfg, err
	}
	cfg.Buckets = append(cfg.Buckets, ranges...)
	return cfg, cfg.Validate()
}

// parseBuckets parses first:last:mode ranges.
func parseBuckets(specs []string) ([]rq.BucketRange, error) {
	out := make([]rq.BucketRange, 0, len(specs))
	for _, s := range specs {
		parts := strings.Split(s, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("bucket range %q: want first:last:mode", s)
		}
		first, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("bucket range %q: %w", s, err)
		}
		last, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("bucket range %q: %w", s, err)
		}
		out = append(out, rq.BucketRange{First: first, Last: last, Mode: parts[2]})
	}
	return out, nil
}

func newBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List registered backends",
		RunE: func(cmd *cobra.Command, _ []string) error {
			def := backend.Default()
			for _, name := range backend.Available() {
				mark := " "
				if def != nil && def.Name() == name {
					mark = "*"
				}
				status := color.GreenString("ready")
				if b := backend.Get(name); b != nil {
					if err := b.Init(); err != nil {
						status = color.YellowString(err.Error())
					} else {
						b.Close()
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-8s %s\n", mark, name, status)
			}
			return nil
		},
	}
}

func printError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("[rqbench]"), message)
}

func printInfo(message string) {
	fmt.Printf("%s %s\n", color.CyanString("[rqbench]"), message)
}

func since(start time.Time) string {
	return time.Since(start).Round(time.Microsecond).String()
}
