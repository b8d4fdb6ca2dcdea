// ABOUTME: The worker command
// ABOUTME: Serves the ASR worker protocol backed by an OpenAI-compatible endpoint
package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/mindscribe/mindscribe-go/internal/asr"
	"github.com/mindscribe/mindscribe-go/internal/discovery"
	"github.com/mindscribe/mindscribe-go/internal/protocol"
	"github.com/spf13/cobra"
)

type workerOptions struct {
	listen    string
	upstream  string
	apiKey    string
	name      string
	advertise bool
	models    []string
}

func (a *app) newWorkerCommand() *cobra.Command {
	opts := workerOptions{}

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run an ASR worker for mindscribe clients",
		Long: `Accept mindscribe worker protocol connections on --listen and run each
chunk against the OpenAI-compatible transcription endpoint at --upstream.

With --advertise the worker is published over mDNS so that clients started
with --discover can find it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.worker(cmd.Context(), opts)
		},
	}

	hostname, _ := os.Hostname()
	cmd.Flags().StringVar(&opts.listen, "listen", ":8931", "Address to accept client connections on")
	cmd.Flags().StringVar(&opts.upstream, "upstream", "", "Base URL of the transcription endpoint (required)")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", os.Getenv("MINDSCRIBE_UPSTREAM_API_KEY"), "Bearer token for the upstream")
	cmd.Flags().StringVar(&opts.name, "name", "mindscribe-"+hostname, "mDNS instance name")
	cmd.Flags().BoolVar(&opts.advertise, "advertise", false, "Advertise the worker with mDNS")
	cmd.Flags().StringSliceVar(&opts.models, "models", nil, "Model ids to advertise")
	_ = cmd.MarkFlagRequired("upstream")
	return cmd
}

func (a *app) worker(ctx context.Context, opts workerOptions) error {
	server, err := asr.NewServer(asr.ServerConfig{
		Loader: &asr.HTTPLoader{BaseURL: opts.upstream, APIKey: opts.apiKey, Logger: a.logger},
		Logger: a.logger,
	})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", opts.listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", opts.listen, err)
	}

	if opts.advertise {
		_, portStr, err := net.SplitHostPort(ln.Addr().String())
		if err != nil {
			ln.Close()
			return err
		}
		port, _ := strconv.Atoi(portStr)

		mgr := discovery.NewManager(discovery.Config{
			ServiceName: opts.name,
			Port:        port,
			Path:        protocol.Path,
			Models:      opts.models,
			Logger:      a.logger,
		})
		if err := mgr.Advertise(); err != nil {
			ln.Close()
			return fmt.Errorf("advertising worker: %w", err)
		}
		defer mgr.Stop()
	}

	a.logger.Info().Str("addr", ln.Addr().String()).Str("upstream", opts.upstream).Msg("ASR worker ready")
	return server.Serve(ctx, ln)
}
