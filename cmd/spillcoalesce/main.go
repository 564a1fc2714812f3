// Command spillcoalesce runs the spill/fill coalescing pass over a demo
// scratch-access scenario and prints the instruction listing before and
// after, for manual inspection of what each stage does.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gpucc/spillcoalesce/internal/coalesce"
	"github.com/gpucc/spillcoalesce/internal/demo"
	"github.com/gpucc/spillcoalesce/internal/ir"
	"github.com/gpucc/spillcoalesce/internal/machine"
)

var version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut *os.File) *cobra.Command {
	var configPath string
	var verbose bool
	var scenario string

	rootCmd := &cobra.Command{
		Use:           "spillcoalesce",
		Short:         "spillcoalesce runs the spill/fill coalescing compiler pass over a demo scenario",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := coalesce.DefaultConfig()
			if configPath != "" {
				loaded, err := loadConfig(configPath)
				if err != nil {
					fmt.Fprintf(errOut, "spillcoalesce: %v\n", err)
					return err
				}
				cfg = loaded
			}

			log := logrus.New()
			log.SetOutput(out)
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}

			build, ok := demo.Scenarios[scenario]
			if !ok {
				err := fmt.Errorf("unknown scenario %q (available: %v)", scenario, demo.ScenarioNames())
				fmt.Fprintf(errOut, "spillcoalesce: %v\n", err)
				return err
			}

			fn := build()
			fmt.Fprintln(out, "-- before --")
			dumpFunction(out, fn)

			p := coalesce.New(fn, machine.DefaultConstants(), machine.ConstantPressure(0), machine.BitPackEncoder{}, cfg, log.WithField("scenario", scenario))
			if err := p.Run(); err != nil {
				fmt.Fprintf(errOut, "spillcoalesce: pass failed: %v\n", err)
				return err
			}

			fmt.Fprintln(out, "-- after --")
			dumpFunction(out, fn)
			return nil
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML coalesce.Config file overriding the defaults")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log each stage's progress at debug level")
	rootCmd.Flags().StringVarP(&scenario, "scenario", "s", "basic-fill-coalesce", "demo scenario to run (see the list-scenarios command)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list-scenarios",
		Short: "list the demo scenario names accepted by --scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range demo.ScenarioNames() {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	})

	return rootCmd
}

func loadConfig(path string) (coalesce.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return coalesce.Config{}, fmt.Errorf("reading config: %w", err)
	}
	cfg := coalesce.DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return coalesce.Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func dumpFunction(out *os.File, fn *ir.Function) {
	for _, bb := range fn.Blocks() {
		fmt.Fprintf(out, "block %d:\n", bb.ID())
		for instr := bb.Front(); instr != nil; instr = instr.Next() {
			fmt.Fprintf(out, "  %s\n", instr.String())
		}
	}
}
