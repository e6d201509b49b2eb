package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wetbench/labsim"
	"github.com/wetbench/labsim/internal/logging"
	"github.com/wetbench/labsim/internal/presentation/graph"
	"github.com/wetbench/labsim/internal/presentation/tui"
	"github.com/wetbench/labsim/pkg/bundle"
	"github.com/wetbench/labsim/pkg/domain"
	"github.com/wetbench/labsim/pkg/trace"
)

// simulateCmd represents the simulate command
var simulateCmd = &cobra.Command{
	Use:   "simulate <protocol>",
	Short: "Simulate a protocol and print its run log",
	Long: `Parses and executes the given protocol file (JSON instructions, source,
or a bundle archive) and prints the resulting run log. Source protocols
run under the current-generation engine can additionally be written out
as a portable bundle archive.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		protocolPath := args[0]

		labwarePaths, _ := cmd.Flags().GetStringSlice("custom-labware-path")
		dataPaths, _ := cmd.Flags().GetStringSlice("custom-data-path")
		output, _ := cmd.Flags().GetString("output")
		levelName, _ := cmd.Flags().GetString("log-level")
		propagate, _ := cmd.Flags().GetBool("propagate-logs")
		makeBundle, _ := cmd.Flags().GetBool("bundle")
		bundleDest, _ := cmd.Flags().GetString("bundle-dest")

		level, err := trace.ParseLevel(levelName)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		contents, err := os.ReadFile(protocolPath)
		if err != nil {
			fmt.Printf("Error: cannot read protocol: %v\n", err)
			os.Exit(1)
		}

		opts := []labsim.Option{
			labsim.WithLabwarePaths(labwarePaths...),
			labsim.WithDataPaths(dataPaths...),
			labsim.WithLogLevel(level),
			labsim.WithLogger(logging.New(slog.Level(level))),
		}
		if propagate {
			opts = append(opts, labsim.WithPropagateLogs())
		}
		if cmd.Flags().Changed("api-v2") {
			v2, _ := cmd.Flags().GetBool("api-v2")
			opts = append(opts, labsim.WithProtocolAPIv2(v2))
		}
		if cmd.Flags().Changed("backcompat") {
			bc, _ := cmd.Flags().GetBool("backcompat")
			opts = append(opts, labsim.WithBackcompat(bc))
		}

		// Cancel the run on SIGINT/SIGTERM so a partial run log still
		// prints.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runlog, bundleContents, simErr := labsim.Simulate(ctx, bytes.NewReader(contents), protocolPath, opts...)
		if simErr != nil && runlog == nil {
			fmt.Printf("Error: %v\n", simErr)
			os.Exit(1)
		}

		if err := printRunLog(runlog, protocolPath, output); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		if simErr != nil {
			fmt.Fprintf(os.Stderr, "Protocol aborted: %v\n", simErr)
			os.Exit(1)
		}

		if makeBundle {
			if bundleContents == nil {
				fmt.Fprintln(os.Stderr, "Warning: protocol does not qualify for bundling, no archive written")
				return
			}
			dest := bundleDest
			if dest == "" {
				dest = bundle.DefaultDest(protocolPath)
			}
			if err := bundle.Create(dest, protocolPath, bundleContents); err != nil {
				fmt.Printf("Error: cannot write bundle: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stderr, "Bundle written to %s\n", dest)
		}
	},
}

func printRunLog(runlog domain.RunLog, fileName, output string) error {
	switch output {
	case "json":
		raw, err := json.MarshalIndent(runlog, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(raw))
		return nil

	case "pretty":
		text, err := labsim.FormatRunLog(runlog)
		if err != nil {
			return err
		}
		md := tui.RunLogMarkdown(fileName, runlog, text)
		rendered, err := tui.NewRenderer()(md)
		if err != nil {
			return err
		}
		fmt.Print(rendered)
		return nil

	case "mermaid":
		fmt.Println(graph.GenerateMermaid(runlog))
		return nil

	case "runlog":
		text, err := labsim.FormatRunLog(runlog)
		if err != nil {
			return err
		}
		if term.IsTerminal(int(os.Stdout.Fd())) {
			text = tui.Colorize(text)
		}
		fmt.Println(text)
		return nil

	default:
		return errors.New("unknown output format " + output + " (want runlog, pretty, json or mermaid)")
	}
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringSliceP("custom-labware-path", "L", nil, "Directory searched for custom labware definitions (repeatable)")
	simulateCmd.Flags().StringSliceP("custom-data-path", "D", nil, "Data file or directory made available to the protocol (repeatable)")
	simulateCmd.Flags().StringP("output", "o", "runlog", "Output format (runlog|pretty|json|mermaid)")
	simulateCmd.Flags().Bool("propagate-logs", false, "Also forward captured protocol logs to stderr")
	simulateCmd.Flags().BoolP("bundle", "b", false, "Write a bundle archive when the run qualifies")
	simulateCmd.Flags().StringP("bundle-dest", "d", "", "Bundle archive destination (defaults next to the protocol)")
	simulateCmd.Flags().Bool("api-v2", false, "Override: run under the current-generation engine")
	simulateCmd.Flags().Bool("backcompat", false, "Override: allow API level 1 protocols under the current engine")
}
