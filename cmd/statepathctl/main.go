// Command statepathctl validates, visualizes, and drives statechart
// designs authored as YAML files, grounded on heistp-antler's cobra
// root()/subcommand-builder shape (cmd/antler/main.go).
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/latticeform/statepath"
	"github.com/latticeform/statepath/internal/logging"
	"github.com/latticeform/statepath/internal/persist"
	"github.com/latticeform/statepath/internal/registry"
	"github.com/latticeform/statepath/internal/visual"
)

func main() {
	if err := root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func root() (cmd *cobra.Command) {
	cmd = &cobra.Command{
		Use:           "statepathctl",
		Short:         "Validate, visualize, and drive statechart designs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(validateCmd())
	cmd.AddCommand(visualizeCmd())
	cmd.AddCommand(runCmd())
	cmd.AddCommand(serveCmd())
	return
}

// serveCmd builds an instance with the full ambient stack wired in:
// structured logging, JSON-file persistence, and an in-memory registry
// so a host process can look the instance back up by id. It then runs
// the same stdin-driven event loop as runCmd.
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve <design.yaml>",
		Short: "Runs an instance with logging, persistence, and a registry wired in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			logger := logging.New(cfg.LogLevel, cfg.LogFormat)

			df, err := loadDesignFile(args[0])
			if err != nil {
				return err
			}
			design, err := df.toDesign()
			if err != nil {
				return err
			}

			jsonPersister, err := persist.NewJSONPersister(cfg.PersistDir)
			if err != nil {
				return err
			}
			reg := registry.NewInMemoryRegistry()

			inst, err := statepath.NewInstance(design,
				statepath.WithLogger[map[string]any](logger),
				statepath.WithPersister[map[string]any](jsonPersister),
				statepath.WithRegistry[map[string]any](reg),
				statepath.WithVisualizer[map[string]any](visual.DOTVisualizer{}),
			)
			if err != nil {
				return err
			}
			defer inst.Close()

			logger.Info("instance started", "ids", reg.IDs())
			printSnapshot(inst.GetUpdate())

			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				line := scanner.Text()
				if line == "" {
					continue
				}
				var req struct {
					Event   string `json:"event"`
					Payload any    `json:"payload"`
				}
				if err := json.Unmarshal([]byte(line), &req); err != nil {
					logger.Warn("bad input line", "error", err)
					continue
				}
				if err := inst.Send(req.Event, req.Payload); err != nil {
					logger.Warn("send failed", "event", req.Event, "error", err)
					continue
				}
				printSnapshot(inst.GetUpdate())
			}
			return scanner.Err()
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <design.yaml>",
		Short: "Parses a design file and reports any structural error",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			df, err := loadDesignFile(args[0])
			if err != nil {
				return err
			}
			design, err := df.toDesign()
			if err != nil {
				return err
			}
			if err := design.Validate(); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
}

func visualizeCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "visualize <design.yaml>",
		Short: "Renders a design's initial configuration as DOT or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			df, err := loadDesignFile(args[0])
			if err != nil {
				return err
			}
			design, err := df.toDesign()
			if err != nil {
				return err
			}
			inst, err := statepath.NewInstance(design)
			if err != nil {
				return err
			}
			defer inst.Close()

			var v statepath.Visualizer
			switch format {
			case "json":
				v = visual.JSONVisualizer{}
			default:
				v = visual.DOTVisualizer{}
			}
			out, err := v.Export(inst.GetUpdate())
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "dot", `output format: "dot" or "json"`)
	return cmd
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <design.yaml>",
		Short: "Builds an instance and replays events read from stdin as JSON lines {event, payload}",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			df, err := loadDesignFile(args[0])
			if err != nil {
				return err
			}
			design, err := df.toDesign()
			if err != nil {
				return err
			}
			inst, err := statepath.NewInstance(design)
			if err != nil {
				return err
			}
			defer inst.Close()

			printSnapshot(inst.GetUpdate())

			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				line := scanner.Text()
				if line == "" {
					continue
				}
				var req struct {
					Event   string `json:"event"`
					Payload any    `json:"payload"`
				}
				if err := json.Unmarshal([]byte(line), &req); err != nil {
					fmt.Fprintln(os.Stderr, "bad input line:", err)
					continue
				}
				if err := inst.Send(req.Event, req.Payload); err != nil {
					fmt.Fprintln(os.Stderr, "send failed:", err)
					continue
				}
				printSnapshot(inst.GetUpdate())
			}
			return scanner.Err()
		},
	}
}

func printSnapshot(snap statepath.Snapshot) {
	out, _ := json.Marshal(snap)
	fmt.Println(string(out))
}
