// ABOUTME: OpenAI-compatible HTTP transcription engine
// ABOUTME: Uploads each chunk as a WAV file to /v1/audio/transcriptions
package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/mindscribe/mindscribe-go/pkg/audio"
	"github.com/mindscribe/mindscribe-go/pkg/audio/encode"
	"github.com/mindscribe/mindscribe-go/pkg/transcribe"
	"github.com/rs/zerolog"
)

// DefaultHTTPTimeout bounds one upload when no client is supplied
const DefaultHTTPTimeout = 5 * time.Minute

// languageCodes maps pipeline language names to ISO-639-1 codes
var languageCodes = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"dutch":      "nl",
	"japanese":   "ja",
	"chinese":    "zh",
	"korean":     "ko",
	"russian":    "ru",
}

// LanguageCode returns the ISO-639-1 code for a language name, passing
// two-letter codes through. Unknown names return "".
func LanguageCode(language string) string {
	l := strings.ToLower(strings.TrimSpace(language))
	if len(l) == 2 {
		return l
	}
	return languageCodes[l]
}

// HTTPLoader creates engines for an OpenAI-compatible endpoint. There is no
// remote load step, so Load reports full progress immediately.
type HTTPLoader struct {
	// BaseURL is the API root, e.g. https://api.openai.com
	BaseURL string

	// APIKey is sent as a bearer token when set
	APIKey string

	// Client defaults to an http.Client with DefaultHTTPTimeout
	Client *http.Client

	Logger zerolog.Logger
}

// Load returns an engine bound to modelID
func (l *HTTPLoader) Load(ctx context.Context, modelID string, onProgress func(float64)) (transcribe.Engine, error) {
	if l.BaseURL == "" {
		return nil, fmt.Errorf("http asr base URL is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := l.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	if onProgress != nil {
		onProgress(1)
	}
	l.Logger.Info().Str("base_url", l.BaseURL).Str("model", modelID).Msg("using HTTP ASR backend")

	return &HTTPEngine{
		baseURL: strings.TrimRight(l.BaseURL, "/"),
		apiKey:  l.APIKey,
		model:   modelID,
		client:  client,
		logger:  l.Logger,
	}, nil
}

// HTTPEngine transcribes chunks with multipart uploads
type HTTPEngine struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  zerolog.Logger
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Endpoint returns the URL used for a task
func (e *HTTPEngine) Endpoint(task string) string {
	if task == "translate" {
		return e.baseURL + "/v1/audio/translations"
	}
	return e.baseURL + "/v1/audio/transcriptions"
}

// Invoke uploads samples as a 16 kHz mono WAV and returns the text
func (e *HTTPEngine) Invoke(ctx context.Context, samples []float32, opts transcribe.Options) (transcribe.Result, error) {
	wav, err := encode.WAV(audio.Buffer{Samples: samples, SampleRate: audio.TargetRate})
	if err != nil {
		return transcribe.Result{}, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("model", e.model); err != nil {
		return transcribe.Result{}, err
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return transcribe.Result{}, err
	}
	if code := LanguageCode(opts.Language); code != "" && opts.Task != "translate" {
		if err := mw.WriteField("language", code); err != nil {
			return transcribe.Result{}, err
		}
	}
	fw, err := mw.CreateFormFile("file", "chunk.wav")
	if err != nil {
		return transcribe.Result{}, err
	}
	if _, err := fw.Write(wav); err != nil {
		return transcribe.Result{}, err
	}
	if err := mw.Close(); err != nil {
		return transcribe.Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.Endpoint(opts.Task), &body)
	if err != nil {
		return transcribe.Result{}, err
	}
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return transcribe.Result{}, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return transcribe.Result{}, fmt.Errorf("transcription http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return transcribe.Result{}, fmt.Errorf("decode transcription response: %w", err)
	}

	e.logger.Debug().Int("samples", len(samples)).Int("chars", len(tr.Text)).Msg("chunk transcribed")
	return transcribe.Result{Text: strings.TrimSpace(tr.Text)}, nil
}
