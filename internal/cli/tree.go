// ABOUTME: The tree command and mind map text output
// ABOUTME: Builds node-tree documents from saved segments or a transcript file
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mindscribe/mindscribe-go/internal/topics"
	"github.com/mindscribe/mindscribe-go/pkg/mindtree"
	"github.com/spf13/cobra"
)

func (a *app) newTreeCommand() *cobra.Command {
	var (
		fromTranscript bool
		outline        bool
	)

	cmd := &cobra.Command{
		Use:   "tree <file>",
		Short: "Build a mind map document from topic segments",
		Long: `Read a topic service response ({"segments": [...]}) from <file> and print
the node-tree document as JSON. Use - to read standard input.

With --transcript, <file> is a transcript that is first sent to the topic
service.

Examples:
  mindscribe tree segments.json
  mindscribe tree --transcript talk.txt --outline`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			var segments []mindtree.Segment
			if fromTranscript {
				segments, err = a.analyze(cmd.Context(), string(data))
			} else {
				segments, err = mindtree.ParseSegments(data)
			}
			if err != nil {
				return err
			}

			tree, err := mindtree.Build(segments)
			if err != nil {
				return err
			}

			if outline {
				printOutline(a.stdout, tree)
				return nil
			}
			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(mindtree.NewDocument(tree))
		},
	}

	cmd.Flags().BoolVar(&fromTranscript, "transcript", false, "Treat <file> as a transcript and call the topic service")
	cmd.Flags().BoolVar(&outline, "outline", false, "Print an indented outline instead of JSON")
	return cmd
}

func (a *app) analyze(ctx context.Context, transcript string) ([]mindtree.Segment, error) {
	client := topics.NewClient(a.cfg.Topics.URL, a.cfg.Topics.Timeout, topics.WithLogger(a.logger))
	return client.Analyze(ctx, transcript)
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// printOutline writes the tree as an indented list, right-hand topics first
func printOutline(w io.Writer, tree mindtree.Tree) {
	root := tree.Root
	if root == nil {
		root = mindtree.EmptyTree().Root
	}
	fmt.Fprintln(w, root.Topic)
	for _, topic := range root.Children {
		fmt.Fprintf(w, "  %s %s\n", arrow(topic.Direction), topic.Topic)
		for _, c := range topic.Children {
			fmt.Fprintf(w, "      - %s\n", c.Topic)
		}
	}
}

func arrow(dir mindtree.Direction) string {
	if dir == mindtree.Left {
		return "<"
	}
	return ">"
}

// printSummary writes the transcript followed by the outline
func printSummary(w io.Writer, transcript string, tree mindtree.Tree) {
	fmt.Fprintln(w, strings.TrimRight(transcript, "\n"))
	fmt.Fprintln(w)
	printOutline(w, tree)
}
