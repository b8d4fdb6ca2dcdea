// ABOUTME: WebSocket client for remote ASR workers
// ABOUTME: Loads a model over the worker protocol and sends chunks as binary frames
package asr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mindscribe/mindscribe-go/internal/protocol"
	"github.com/mindscribe/mindscribe-go/internal/version"
	"github.com/mindscribe/mindscribe-go/pkg/audio"
	"github.com/mindscribe/mindscribe-go/pkg/audio/encode"
	"github.com/mindscribe/mindscribe-go/pkg/transcribe"
	"github.com/rs/zerolog"
)

// ErrConnectionClosed is returned by Invoke once the worker connection is gone
var ErrConnectionClosed = errors.New("asr worker connection closed")

// WSLoader connects to an ASR worker and loads a model on it
type WSLoader struct {
	// Addr is the worker's host:port
	Addr string

	// Path defaults to protocol.Path
	Path string

	// Codec is the chunk payload codec, "pcm" or "opus"
	Codec string

	// Dialer defaults to websocket.DefaultDialer
	Dialer *websocket.Dialer

	Logger zerolog.Logger
}

// URL returns the worker websocket URL
func (l *WSLoader) URL() string {
	path := l.Path
	if path == "" {
		path = protocol.Path
	}
	u := url.URL{Scheme: "ws", Host: l.Addr, Path: path}
	return u.String()
}

// Load dials the worker, performs the hello and load handshake, and returns
// an engine bound to the connection. Cancelling ctx aborts the handshake.
func (l *WSLoader) Load(ctx context.Context, modelID string, onProgress func(float64)) (transcribe.Engine, error) {
	encoder, err := encode.New(l.Codec, audio.TargetRate)
	if err != nil {
		return nil, err
	}

	dialer := l.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	u := l.URL()
	l.Logger.Info().Str("url", u).Str("model", modelID).Str("codec", encoder.Codec()).Msg("connecting to ASR worker")

	conn, _, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	// Closing the connection unblocks the handshake reads on cancellation
	stop := context.AfterFunc(ctx, func() { conn.Close() })

	if err := handshake(conn, modelID, encoder.Codec(), onProgress); err != nil {
		stop()
		conn.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("handshake failed: %w", err)
	}
	if !stop() {
		return nil, ctx.Err()
	}

	engine := newWSEngine(conn, encoder, l.Logger)
	go engine.readLoop()

	l.Logger.Info().Str("model", modelID).Msg("ASR worker ready")
	return engine, nil
}

func handshake(conn *websocket.Conn, modelID, codec string, onProgress func(float64)) error {
	hello, err := protocol.NewMessage(protocol.TypeHello, protocol.Hello{
		ClientID:        uuid.New().String(),
		Product:         version.Product,
		SoftwareVersion: version.Version,
		Version:         protocol.Version,
	})
	if err != nil {
		return err
	}
	if err := conn.WriteJSON(hello); err != nil {
		return fmt.Errorf("failed to send %s: %w", protocol.TypeHello, err)
	}

	load, err := protocol.NewMessage(protocol.TypeLoad, protocol.Load{
		Model:      modelID,
		Codec:      codec,
		SampleRate: audio.TargetRate,
	})
	if err != nil {
		return err
	}
	if err := conn.WriteJSON(load); err != nil {
		return fmt.Errorf("failed to send %s: %w", protocol.TypeLoad, err)
	}

	for {
		var msg protocol.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("failed to read load response: %w", err)
		}

		switch msg.Type {
		case protocol.TypeProgress:
			var p protocol.Progress
			if err := msg.Decode(&p); err != nil {
				return err
			}
			if onProgress != nil {
				onProgress(p.Progress)
			}
		case protocol.TypeReady:
			return nil
		case protocol.TypeError:
			var e protocol.Error
			if err := msg.Decode(&e); err != nil {
				return err
			}
			return fmt.Errorf("worker failed to load %s: %s", modelID, e.Error)
		default:
			return fmt.Errorf("unexpected message during load: %s", msg.Type)
		}
	}
}

type reply struct {
	text string
	err  error
}

// WSEngine runs chunks on a remote worker over one websocket connection
type WSEngine struct {
	conn    *websocket.Conn
	encoder encode.Encoder
	logger  zerolog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[uuid.UUID]chan reply
	readErr error

	closeOnce sync.Once
}

func newWSEngine(conn *websocket.Conn, encoder encode.Encoder, logger zerolog.Logger) *WSEngine {
	return &WSEngine{
		conn:    conn,
		encoder: encoder,
		logger:  logger,
		pending: make(map[uuid.UUID]chan reply),
	}
}

// Invoke sends one chunk and waits for its text
func (e *WSEngine) Invoke(ctx context.Context, samples []float32, opts transcribe.Options) (transcribe.Result, error) {
	payload, err := e.encoder.Encode(samples)
	if err != nil {
		return transcribe.Result{}, fmt.Errorf("encode chunk: %w", err)
	}
	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return transcribe.Result{}, fmt.Errorf("marshal options: %w", err)
	}

	chunk := protocol.Chunk{ID: uuid.New(), Options: optsJSON, Payload: payload}
	frame, err := chunk.MarshalBinary()
	if err != nil {
		return transcribe.Result{}, err
	}

	ch := make(chan reply, 1)
	e.mu.Lock()
	if e.readErr != nil {
		err := e.readErr
		e.mu.Unlock()
		return transcribe.Result{}, err
	}
	e.pending[chunk.ID] = ch
	e.mu.Unlock()
	defer e.forget(chunk.ID)

	e.writeMu.Lock()
	err = e.conn.WriteMessage(websocket.BinaryMessage, frame)
	e.writeMu.Unlock()
	if err != nil {
		return transcribe.Result{}, fmt.Errorf("send chunk: %w", err)
	}

	e.logger.Debug().Str("id", chunk.ID.String()).Int("samples", len(samples)).Int("bytes", len(frame)).Msg("chunk sent")

	select {
	case r := <-ch:
		if r.err != nil {
			return transcribe.Result{}, r.err
		}
		return transcribe.Result{Text: r.text}, nil
	case <-ctx.Done():
		return transcribe.Result{}, ctx.Err()
	}
}

func (e *WSEngine) forget(id uuid.UUID) {
	e.mu.Lock()
	delete(e.pending, id)
	e.mu.Unlock()
}

func (e *WSEngine) deliver(id string, r reply) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		e.logger.Warn().Str("id", id).Msg("reply with invalid chunk id")
		return
	}

	e.mu.Lock()
	ch, ok := e.pending[parsed]
	e.mu.Unlock()
	if !ok {
		e.logger.Debug().Str("id", id).Msg("reply for unknown or abandoned chunk")
		return
	}
	select {
	case ch <- r:
	default:
		e.logger.Warn().Str("id", id).Msg("duplicate reply for chunk")
	}
}

// readLoop routes worker replies to waiting Invoke calls
func (e *WSEngine) readLoop() {
	var loopErr error
	defer func() { e.fail(loopErr) }()

	for {
		messageType, data, err := e.conn.ReadMessage()
		if err != nil {
			loopErr = fmt.Errorf("%w: %v", ErrConnectionClosed, err)
			return
		}
		if messageType != websocket.TextMessage {
			e.logger.Warn().Int("type", messageType).Msg("ignoring non-text message from worker")
			continue
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			e.logger.Warn().Err(err).Msg("failed to parse worker message")
			continue
		}

		switch msg.Type {
		case protocol.TypeResult:
			var r protocol.Result
			if err := msg.Decode(&r); err != nil {
				e.logger.Warn().Err(err).Msg("bad chunk result")
				continue
			}
			e.deliver(r.ID, reply{text: r.Text})
		case protocol.TypeFailed:
			var f protocol.Failed
			if err := msg.Decode(&f); err != nil {
				e.logger.Warn().Err(err).Msg("bad chunk error")
				continue
			}
			e.deliver(f.ID, reply{err: fmt.Errorf("asr worker: %s", f.Error)})
		default:
			e.logger.Debug().Str("type", msg.Type).Msg("ignoring worker message")
		}
	}
}

// fail records the terminal read error and wakes every pending Invoke
func (e *WSEngine) fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err == nil {
		err = ErrConnectionClosed
	}
	e.readErr = err
	for id, ch := range e.pending {
		select {
		case ch <- reply{err: err}:
		default:
		}
		delete(e.pending, id)
	}
}

// Close sends a close frame and releases the connection
func (e *WSEngine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.writeMu.Lock()
		_ = e.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		e.writeMu.Unlock()
		err = e.conn.Close()
		_ = e.encoder.Close()
	})
	return err
}
