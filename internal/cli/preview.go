// ABOUTME: The preview command
// ABOUTME: Plays the opening seconds of a media file through the sound card
package cli

import (
	"fmt"

	"github.com/mindscribe/mindscribe-go/internal/playback"
	"github.com/mindscribe/mindscribe-go/pkg/audio/decode"
	"github.com/mindscribe/mindscribe-go/pkg/audio/resample"
	"github.com/spf13/cobra"
)

func (a *app) newPreviewCommand() *cobra.Command {
	var (
		seconds float64
		volume  int
	)

	cmd := &cobra.Command{
		Use:   "preview <media>",
		Short: "Play the audio the recognizer will hear",
		Long: `Decode <media>, convert it to 16 kHz mono exactly as transcription does
and play the first seconds, to check that the right track was picked up.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			local, err := a.resolveMedia(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			buf, err := decode.File(cmd.Context(), local)
			if err != nil {
				return fmt.Errorf("decoding %s: %w", args[0], err)
			}
			buf, err = resample.Resample(buf)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("seconds") {
				seconds = float64(a.cfg.PreviewSeconds)
			}

			out := playback.NewOto(a.logger)
			out.SetVolume(volume)
			a.logger.Info().Float64("seconds", seconds).Msg("playing preview")
			return playback.Preview(cmd.Context(), out, buf, seconds)
		},
	}

	cmd.Flags().Float64Var(&seconds, "seconds", 0, "Seconds to play (default preview_seconds from config)")
	cmd.Flags().IntVar(&volume, "volume", 80, "Playback volume 0-100")
	return cmd
}
