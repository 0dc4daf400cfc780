package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/noderod/guillemot/internal/circuitviz"
	"github.com/noderod/guillemot/internal/config"
	"github.com/noderod/guillemot/internal/obslog"
	"github.com/noderod/guillemot/pkg/guillemot"
)

// main wraps Execute in the single top-level error handler described in
// original_source/aux_handler/handler.py: report to stderr and set the
// exit code, rather than letting an error panic through.
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	flagSamples   int
	flagTime      bool
	flagRenderPNG string
	flagVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "guillemot <enumerate|rejection> <file>",
	Short: "Interpret a probabilistic program and infer P(return expression)",
	Long: `guillemot parses a probabilistic program, builds its full symbolic
circuit of random-variable branches, and estimates the probability that
the program's return expression is true, using either exact enumeration
or weighted rejection sampling.`,
	Args: cobra.ExactArgs(2),
	RunE: runGuillemot,
}

func init() {
	flags := rootCmd.Flags()
	flags.IntVar(&flagSamples, "samples", 0, "rejection-sampling draw count (method=rejection only; 0 uses the strategy default of 5000)")
	flags.BoolVarP(&flagTime, "time", "T", false, "print inference wall-time in integer milliseconds on its own line")
	flags.StringVar(&flagRenderPNG, "render-png", "", "rasterize the built circuit to this PNG path via Graphviz dot")
	flags.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

func runGuillemot(cmd *cobra.Command, args []string) error {
	methodArg, path := args[0], args[1]

	cfg := config.Run{
		SourcePath:    path,
		Method:        config.Method(methodArg),
		Samples:       flagSamples,
		ShowTiming:    flagTime,
		RenderPNGPath: flagRenderPNG,
		Verbose:       flagVerbose,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if info, err := os.Stat(cfg.SourcePath); err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("%s must exist as a regular file", cfg.SourcePath)
	}

	logger := obslog.New(cfg.Verbose)

	src, err := os.ReadFile(cfg.SourcePath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", cfg.SourcePath, err)
	}

	rng := guillemot.NewRNG(config.FixedSeed)
	logger.Debugf("parsing and building circuit for %s", cfg.SourcePath)

	prog, err := guillemot.Build(string(src), rng, os.Stdout)
	if err != nil {
		return err
	}
	logger.Debugf("circuit built: %d leaves", len(prog.Circuit.Leaves))

	if cfg.RenderPNGPath != "" {
		if err := circuitviz.RenderPNG(prog.Circuit.ToDOT(), cfg.RenderPNGPath); err != nil {
			logger.Warnf("rendering circuit diagram: %v", err)
		} else {
			logger.Infof("wrote circuit diagram to %s", cfg.RenderPNGPath)
		}
	}

	logger.Debugf("running %s inference", cfg.Method)
	start := time.Now()
	p, err := guillemot.Infer(context.Background(), prog, cfg.Method, cfg.Samples, rng)
	elapsed := time.Since(start)
	if err != nil {
		return err
	}

	if math.IsNaN(p) {
		fmt.Println("0")
	} else {
		fmt.Printf("%.4f\n", p)
	}
	if cfg.ShowTiming {
		fmt.Println(elapsed.Milliseconds())
	}
	return nil
}
