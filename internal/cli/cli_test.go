// ABOUTME: Tests for the mindscribe command tree
// ABOUTME: Runs commands end to end against temporary files and fake services
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mindscribe/mindscribe-go/internal/discovery"
	"github.com/mindscribe/mindscribe-go/internal/version"
	"github.com/mindscribe/mindscribe-go/pkg/audio"
	"github.com/mindscribe/mindscribe-go/pkg/audio/encode"
	"github.com/mindscribe/mindscribe-go/pkg/mindtree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the command tree with an isolated config directory and no
// log file
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MINDSCRIBE_CONFIG_DIR", t.TempDir())

	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(&stdout, &stderr)
	cmd.SetArgs(append([]string{"--log-file", ""}, args...))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

const sampleSegments = `{"segments": [
	{"topic_name": "Intro: Welcome", "content": ["hello everyone"]},
	{"topic_name": "Budget", "content": ["numbers"]},
	{"topic_name": "Welcome", "content": ["thanks for coming"]}
]}`

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version.String()+"\n", out)
}

func TestTreeCommandJSON(t *testing.T) {
	path := writeFile(t, "segments.json", []byte(sampleSegments))

	out, err := execute(t, "tree", path)
	require.NoError(t, err)

	var doc struct {
		Format string         `json:"format"`
		Data   *mindtree.Node `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, mindtree.FormatNodeTree, doc.Format)
	require.NotNil(t, doc.Data)
	assert.Equal(t, mindtree.RootID, doc.Data.ID)
	require.Len(t, doc.Data.Children, 2)
	assert.Equal(t, "Welcome", doc.Data.Children[0].Topic)
	assert.Len(t, doc.Data.Children[0].Children, 2)
	assert.Equal(t, mindtree.Left, doc.Data.Children[1].Direction)
}

func TestTreeCommandOutline(t *testing.T) {
	path := writeFile(t, "segments.json", []byte(sampleSegments))

	out, err := execute(t, "tree", "--outline", path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"Video Topics",
		"  > Welcome",
		"      - hello everyone...",
		"      - thanks for coming...",
		"  < Budget",
		"      - numbers...",
		"",
	}, "\n"), out)
}

func TestTreeCommandFromTranscript(t *testing.T) {
	var received string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Transcript string `json:"transcript"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		received = req.Transcript
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleSegments))
	}))
	defer ts.Close()

	path := writeFile(t, "talk.txt", []byte("[00:00:00] hello everyone\n"))
	t.Setenv("MINDSCRIBE_TOPICS_URL", ts.URL)

	out, err := execute(t, "tree", "--transcript", "--outline", path)
	require.NoError(t, err)
	assert.Equal(t, "[00:00:00] hello everyone\n", received)
	assert.True(t, strings.HasPrefix(out, "Video Topics\n  > Welcome\n"))
}

func TestTreeCommandInvalidSegments(t *testing.T) {
	path := writeFile(t, "bad.json", []byte(`{"segments": [{"content": ["x"]}]}`))

	_, err := execute(t, "tree", path)
	assert.ErrorIs(t, err, mindtree.ErrInvalidSegment)

	_, err = execute(t, "tree", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestInvalidBackendFlag(t *testing.T) {
	_, err := execute(t, "--asr-backend", "grpc", "tree", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid asr backend")
}

func TestTranscribeCommand(t *testing.T) {
	var paths []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": " hello world "}`))
	}))
	defer ts.Close()

	wav, err := encode.WAV(audio.Buffer{Samples: make([]float32, audio.TargetRate), SampleRate: audio.TargetRate})
	require.NoError(t, err)
	media := writeFile(t, "clip.wav", wav)
	output := filepath.Join(t.TempDir(), "clip.txt")

	_, err = execute(t,
		"--asr-backend", "http",
		"--asr-address", ts.URL,
		"--model", "whisper-1",
		"transcribe", media, "-o", output,
	)
	require.NoError(t, err)

	text, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "[00:00:00] hello world\n", string(text))
	assert.Equal(t, []string{"/v1/audio/transcriptions"}, paths)
}

func TestTranscribeCommandRemoteMedia(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	wav, err := encode.WAV(audio.Buffer{Samples: make([]float32, 1600), SampleRate: audio.TargetRate})
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/media/clip.wav", func(w http.ResponseWriter, r *http.Request) {
		w.Write(wav)
	})
	mux.HandleFunc("/v1/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "from the web"}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	out, err := execute(t, "--asr-backend", "http", "--asr-address", ts.URL, "transcribe", ts.URL+"/media/clip.wav")
	require.NoError(t, err)
	assert.Equal(t, "[00:00:00] from the web\n", out)
}

func TestTranscribeCommandUpstreamFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no capacity", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	wav, err := encode.WAV(audio.Buffer{Samples: make([]float32, 1600), SampleRate: audio.TargetRate})
	require.NoError(t, err)
	media := writeFile(t, "clip.wav", wav)

	out, err := execute(t, "--asr-backend", "http", "--asr-address", ts.URL, "transcribe", media)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no capacity")
	assert.Empty(t, out)
}

func TestSelectWorker(t *testing.T) {
	anyModel := &discovery.Worker{Name: "generic", Host: "10.0.0.1", Port: 8931}
	tiny := &discovery.Worker{Name: "tiny", Host: "10.0.0.2", Port: 8931, Models: []string{"whisper-tiny.en"}}
	large := &discovery.Worker{Name: "large", Host: "10.0.0.3", Port: 8931, Models: []string{"whisper-large"}}

	w, err := selectWorker([]*discovery.Worker{anyModel, large, tiny}, "whisper-tiny.en")
	require.NoError(t, err)
	assert.Same(t, tiny, w)

	w, err = selectWorker([]*discovery.Worker{large, anyModel}, "whisper-tiny.en")
	require.NoError(t, err)
	assert.Same(t, anyModel, w)

	_, err = selectWorker([]*discovery.Worker{large}, "whisper-tiny.en")
	assert.Error(t, err)

	_, err = selectWorker(nil, "whisper-tiny.en")
	assert.Error(t, err)
}

func TestPrintSummary(t *testing.T) {
	tree, err := mindtree.Build([]mindtree.Segment{mindtree.NewSegment("A", "x")})
	require.NoError(t, err)

	var buf bytes.Buffer
	printSummary(&buf, "[00:00:00] x\n", tree)
	assert.Equal(t, "[00:00:00] x\n\nVideo Topics\n  > A\n      - x...\n", buf.String())
}
