// ABOUTME: The transcribe command
// ABOUTME: Writes a timestamped transcript of a media file without topic analysis
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mindscribe/mindscribe-go/internal/session"
	"github.com/mindscribe/mindscribe-go/pkg/audio/decode"
	"github.com/mindscribe/mindscribe-go/pkg/transcribe"
	"github.com/spf13/cobra"
)

func (a *app) newTranscribeCommand() *cobra.Command {
	var (
		output   string
		language string
		task     string
	)

	cmd := &cobra.Command{
		Use:   "transcribe <media>",
		Short: "Transcribe a media file to timestamped text",
		Long: `Transcribe the audio track of <media> and print one line per 30 second
chunk, each prefixed with its [HH:MM:SS] start time.

Examples:
  mindscribe transcribe talk.mp4
  mindscribe transcribe talk.wav -o talk.txt
  mindscribe transcribe interview.mp3 --task translate --language german`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := transcribe.DefaultOptions()
			if language != "" {
				opts.Language = language
			}
			if task != "" {
				opts.Task = task
			}
			return a.transcribe(cmd.Context(), args[0], output, opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the transcript to a file instead of stdout")
	cmd.Flags().StringVar(&language, "language", "", "Spoken language (default english)")
	cmd.Flags().StringVar(&task, "task", "", "transcribe or translate (default transcribe)")
	return cmd
}

func (a *app) transcribe(ctx context.Context, path, output string, opts transcribe.Options) error {
	loader, err := newLoader(ctx, a.cfg.ASR, a.logger)
	if err != nil {
		return err
	}

	orch := transcribe.NewOrchestrator(a.logger)
	orch.Options = opts
	orch.ChunkTimeout = a.cfg.ASR.ChunkTimeout

	sess, err := session.New(session.Config{Loader: loader, Orchestrator: orch, Logger: a.logger})
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.LoadModel(ctx, a.cfg.ASR.Model, nil); err != nil {
		return err
	}

	local, err := a.resolveMedia(ctx, path)
	if err != nil {
		return err
	}
	buf, err := decode.File(ctx, local)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	progress := func(done, total int) {
		a.logger.Info().Int("done", done).Int("total", total).Msg("chunk transcribed")
	}
	text, err := sess.Transcribe(ctx, buf, progress, nil)
	if err != nil {
		return err
	}

	var w io.Writer = a.stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}
	_, err = io.WriteString(w, text)
	return err
}
