// ABOUTME: ASR worker server exposing a transcribe.Loader over websockets
// ABOUTME: Each connection loads its own engine and runs chunks one at a time
package asr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mindscribe/mindscribe-go/internal/protocol"
	"github.com/mindscribe/mindscribe-go/pkg/audio/encode"
	"github.com/mindscribe/mindscribe-go/pkg/transcribe"
	"github.com/rs/zerolog"
)

// ServerConfig configures an ASR worker
type ServerConfig struct {
	// Loader produces one engine per client connection (required)
	Loader transcribe.Loader

	// Path defaults to protocol.Path
	Path string

	Logger zerolog.Logger
}

// Server accepts worker protocol connections
type Server struct {
	config   ServerConfig
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	wg    sync.WaitGroup
}

// NewServer creates an ASR worker server
func NewServer(config ServerConfig) (*Server, error) {
	if config.Loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if config.Path == "" {
		config.Path = protocol.Path
	}

	s := &Server{
		config: config,
		upgrader: websocket.Upgrader{
			// Workers serve the local network
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux:   http.NewServeMux(),
		conns: make(map[*websocket.Conn]struct{}),
	}
	s.mux.HandleFunc(config.Path, s.handleWebSocket)
	return s, nil
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Serve runs the worker on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{Handler: s, ReadHeaderTimeout: 10 * time.Second}

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	s.config.Logger.Info().Str("addr", ln.Addr().String()).Str("path", s.config.Path).Msg("ASR worker listening")

	select {
	case <-ctx.Done():
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.config.Logger.Warn().Err(err).Msg("HTTP server shutdown error")
	}

	// Hijacked websocket connections are not closed by Shutdown
	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()

	s.config.Logger.Info().Msg("ASR worker stopped")
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.config.Logger.Warn().Err(err).Msg("websocket upgrade error")
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
		s.wg.Done()
	}()

	log := s.config.Logger.With().Str("remote", r.RemoteAddr).Logger()
	log.Info().Msg("new worker connection")
	p := &peer{conn: conn, log: log}
	if err := s.handleConnection(r.Context(), p); err != nil {
		log.Warn().Err(err).Msg("worker connection ended")
	}
}

// session is the per-connection state after a successful load
type session struct {
	engine     transcribe.Engine
	codec      string
	sampleRate int
}

func (s *Server) handleConnection(ctx context.Context, p *peer) error {
	conn, log := p.conn, p.log

	var hello protocol.Message
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("error reading hello: %w", err)
	}
	if hello.Type != protocol.TypeHello {
		return fmt.Errorf("expected %s, got %s", protocol.TypeHello, hello.Type)
	}

	var loadMsg protocol.Message
	if err := conn.ReadJSON(&loadMsg); err != nil {
		return fmt.Errorf("error reading load: %w", err)
	}
	if loadMsg.Type != protocol.TypeLoad {
		return fmt.Errorf("expected %s, got %s", protocol.TypeLoad, loadMsg.Type)
	}
	var load protocol.Load
	if err := loadMsg.Decode(&load); err != nil {
		return err
	}

	sess, err := s.load(ctx, p, load)
	if err != nil {
		p.send(protocol.TypeError, protocol.Error{Error: err.Error()})
		return err
	}
	defer func() {
		if c, ok := sess.engine.(interface{ Close() error }); ok {
			c.Close()
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		if messageType != websocket.BinaryMessage {
			log.Debug().Msg("ignoring text message after load")
			continue
		}

		var chunk protocol.Chunk
		if err := chunk.UnmarshalBinary(data); err != nil {
			log.Warn().Err(err).Msg("invalid chunk frame")
			continue
		}
		s.runChunk(ctx, p, sess, chunk)
	}
}

func (s *Server) load(ctx context.Context, p *peer, load protocol.Load) (*session, error) {
	switch load.Codec {
	case "", encode.CodecPCM, encode.CodecOpus:
	default:
		return nil, fmt.Errorf("unsupported codec: %s", load.Codec)
	}
	if load.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", load.SampleRate)
	}

	p.log.Info().Str("model", load.Model).Str("codec", load.Codec).Msg("loading model for client")
	engine, err := s.config.Loader.Load(ctx, load.Model, func(progress float64) {
		p.send(protocol.TypeProgress, protocol.Progress{Progress: progress})
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", load.Model, err)
	}

	p.send(protocol.TypeReady, protocol.Ready{Model: load.Model})
	return &session{engine: engine, codec: load.Codec, sampleRate: load.SampleRate}, nil
}

func (s *Server) runChunk(ctx context.Context, p *peer, sess *session, chunk protocol.Chunk) {
	id := chunk.ID.String()
	fail := func(err error) {
		p.log.Warn().Err(err).Str("id", id).Msg("chunk failed")
		p.send(protocol.TypeFailed, protocol.Failed{ID: id, Error: err.Error()})
	}

	samples, err := decodePayload(sess.codec, chunk.Payload, sess.sampleRate)
	if err != nil {
		fail(err)
		return
	}

	opts := transcribe.DefaultOptions()
	if len(chunk.Options) > 0 {
		if err := json.Unmarshal(chunk.Options, &opts); err != nil {
			fail(fmt.Errorf("invalid options: %w", err))
			return
		}
	}

	start := time.Now()
	res, err := sess.engine.Invoke(ctx, samples, opts)
	if err != nil {
		fail(err)
		return
	}

	p.log.Debug().Str("id", id).Dur("elapsed", time.Since(start)).Msg("chunk done")
	p.send(protocol.TypeResult, protocol.Result{ID: id, Text: res.Text})
}

func decodePayload(codec string, payload []byte, sampleRate int) ([]float32, error) {
	if codec == encode.CodecOpus {
		return encode.DecodeOpus(payload, sampleRate)
	}
	return encode.DecodePCM(payload)
}

// peer serializes writes to one connection; loaders may report progress
// from their own goroutines
type peer struct {
	conn *websocket.Conn
	mu   sync.Mutex
	log  zerolog.Logger
}

func (p *peer) send(msgType string, payload any) {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to build message")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.conn.WriteJSON(msg); err != nil {
		p.log.Debug().Err(err).Str("type", msgType).Msg("failed to send message")
	}
}
