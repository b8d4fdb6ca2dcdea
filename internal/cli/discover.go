// ABOUTME: The discover command
// ABOUTME: Lists ASR workers advertised on the local network
package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mindscribe/mindscribe-go/internal/discovery"
	"github.com/spf13/cobra"
)

func (a *app) newDiscoverCommand() *cobra.Command {
	var (
		timeout time.Duration
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List ASR workers found with mDNS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			workers, err := discovery.Discover(cmd.Context(), timeout)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(workers)
			}
			printWorkers(a, workers)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", discoverTimeout, "How long to listen for answers")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func printWorkers(a *app, workers []*discovery.Worker) {
	if len(workers) == 0 {
		fmt.Fprintln(a.stdout, "No ASR workers found.")
		return
	}

	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tPATH\tMODELS")
	for _, wk := range workers {
		models := strings.Join(wk.Models, ",")
		if models == "" {
			models = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", wk.Name, wk.Addr(), wk.Path, models)
	}
	w.Flush()
}
