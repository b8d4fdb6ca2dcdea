// ABOUTME: The run command: decode, transcribe, analyze and draw a mind map
// ABOUTME: Wires the session to the terminal UI, the renderer hub and Prometheus
package cli

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/mindscribe/mindscribe-go/internal/metrics"
	"github.com/mindscribe/mindscribe-go/internal/render"
	"github.com/mindscribe/mindscribe-go/internal/session"
	"github.com/mindscribe/mindscribe-go/internal/topics"
	"github.com/mindscribe/mindscribe-go/internal/ui"
	"github.com/mindscribe/mindscribe-go/pkg/audio"
	"github.com/mindscribe/mindscribe-go/pkg/audio/decode"
	"github.com/mindscribe/mindscribe-go/pkg/mindtree"
	"github.com/mindscribe/mindscribe-go/pkg/transcribe"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func (a *app) newRunCommand() *cobra.Command {
	var noTUI bool

	cmd := &cobra.Command{
		Use:   "run <media>",
		Short: "Transcribe a video file or URL and draw its topic mind map",
		Long: `Decode the audio track of <media>, transcribe it in 30 second chunks,
send the transcript to the topic service and draw the resulting mind map.

The terminal UI supports mouse wheel zoom, +/- zoom steps, p to toggle pan
mode (then drag), 0 to re-center and t to show the transcript.

When hub.listen is set the diagram is also broadcast to websocket clients on
/tree, with Prometheus metrics on /metrics.`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{annotationTUI: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), args[0])
		},
	}
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Print results instead of drawing the terminal UI")
	return cmd
}

// reporter receives pipeline progress from run
type reporter struct {
	status  func(ui.StatusMsg)
	load    func(float64)
	chunk   transcribe.ProgressFunc
	partial transcribe.PartialFunc
}

func (a *app) logReporter() reporter {
	return reporter{
		status: func(msg ui.StatusMsg) {
			if msg.Err != nil {
				return
			}
			a.logger.Info().Str("phase", msg.Phase.String()).Msg("pipeline")
		},
		load: func(p float64) {
			a.logger.Debug().Float64("progress", p).Msg("model loading")
		},
		chunk: func(done, total int) {
			a.logger.Info().Int("done", done).Int("total", total).Msg("chunk transcribed")
		},
		partial: func(string) {},
	}
}

func tuiReporter(t *ui.TUI, model string) reporter {
	return reporter{
		status:  t.Status,
		load:    t.LoadProgress(model),
		chunk:   t.ChunkProgress(),
		partial: t.Partial(),
	}
}

func (a *app) run(ctx context.Context, path string) error {
	cfg := a.cfg

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	loader, err := newLoader(ctx, cfg.ASR, a.logger)
	if err != nil {
		return err
	}

	orch := transcribe.NewOrchestrator(a.logger)
	orch.ChunkTimeout = cfg.ASR.ChunkTimeout

	sess, err := session.New(session.Config{
		Loader:       loader,
		Analyzer:     topics.NewClient(cfg.Topics.URL, cfg.Topics.Timeout, topics.WithLogger(a.logger), topics.WithMetrics(m)),
		Orchestrator: orch,
		Metrics:      m,
		Logger:       a.logger,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if cfg.Hub.Listen != "" {
		ln, err := net.Listen("tcp", cfg.Hub.Listen)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", cfg.Hub.Listen, err)
		}
		hub := render.NewHub(render.HubConfig{Gatherer: reg, Metrics: m, Logger: a.logger})
		if err := sess.AddRenderer(hub); err != nil {
			ln.Close()
			return err
		}
		g.Go(func() error { return hub.Serve(ctx, ln) })
	}

	rep := a.logReporter()
	if a.tui {
		t := ui.NewTUI(sess.Viewport())
		if err := sess.AddRenderer(t); err != nil {
			return err
		}
		rep = tuiReporter(t, cfg.ASR.Model)

		g.Go(func() error {
			defer cancel()
			return t.Start()
		})
		g.Go(func() error {
			<-ctx.Done()
			t.Stop()
			return nil
		})
	}

	// In TUI mode the pipeline error is shown on screen and returned after
	// the user quits
	var pipelineErr error
	g.Go(func() error {
		tree, err := a.pipeline(ctx, sess, path, rep)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			rep.status(ui.StatusMsg{Phase: ui.PhaseFailed, Err: err})
			if a.tui {
				pipelineErr = err
				return nil
			}
			return err
		}

		if a.tui {
			return nil
		}
		printSummary(a.stdout, sess.Transcript(), tree)
		if cfg.Hub.Listen == "" {
			cancel()
			return nil
		}
		a.logger.Info().Str("addr", cfg.Hub.Listen).Msg("serving diagram until interrupted")
		<-ctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return pipelineErr
}

// pipeline loads the model while decoding, then transcribes and analyzes
func (a *app) pipeline(ctx context.Context, sess *session.Session, path string, rep reporter) (mindtree.Tree, error) {
	model := a.cfg.ASR.Model
	rep.status(ui.StatusMsg{Phase: ui.PhaseLoading, Model: model})

	var buf audio.Buffer
	lg, lctx := errgroup.WithContext(ctx)
	lg.Go(func() error {
		return sess.LoadModel(lctx, model, rep.load)
	})
	lg.Go(func() error {
		local, err := a.resolveMedia(lctx, path)
		if err != nil {
			return err
		}
		b, err := decode.File(lctx, local)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
		a.logger.Info().Str("file", path).Float64("seconds", b.Duration().Seconds()).Int("rate", b.SampleRate).Msg("decoded audio")
		buf = b
		return nil
	})
	if err := lg.Wait(); err != nil {
		return mindtree.Tree{}, err
	}

	rep.status(ui.StatusMsg{Phase: ui.PhaseTranscribing})
	if _, err := sess.Transcribe(ctx, buf, rep.chunk, rep.partial); err != nil {
		return mindtree.Tree{}, err
	}

	rep.status(ui.StatusMsg{Phase: ui.PhaseAnalyzing})
	tree, err := sess.Analyze(ctx)
	if err != nil {
		return mindtree.Tree{}, err
	}

	rep.status(ui.StatusMsg{Phase: ui.PhaseReady})
	return tree, nil
}
