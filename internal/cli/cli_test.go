package cli

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const replyJSON = `{
	"id": "msg_cli",
	"type": "message",
	"role": "assistant",
	"model": "claude-test",
	"content": [{"type": "text", "text": "Rayleigh scattering."}],
	"stop_reason": "end_turn",
	"usage": {"input_tokens": 11, "output_tokens": 4, "cache_read_input_tokens": 2}
}`

const replyStream = `event: message_start
data: {"type":"message_start","message":{"id":"msg_cli","type":"message","role":"assistant","model":"claude-test","content":[],"usage":{"input_tokens":11,"output_tokens":1}}}

event: content_block_start
data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Once upon"}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" a time"}}

event: content_block_stop
data: {"type":"content_block_stop","index":0}

event: message_delta
data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":5}}

event: message_stop
data: {"type":"message_stop"}

`

const batchJSON = `{
	"id": "msgbatch_cli",
	"type": "message_batch",
	"processing_status": "ended",
	"request_counts": {"processing": 0, "succeeded": 3, "errored": 1, "canceled": 0, "expired": 0},
	"created_at": "2025-01-01T00:00:00Z",
	"expires_at": "2025-01-02T00:00:00Z",
	"ended_at": "2025-01-01T02:00:00Z",
	"results_url": "https://example.com/results"
}`

// fakeAPI records the last request body and answers like the Messages API.
type fakeAPI struct {
	srv  *httptest.Server
	body []byte
	path string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.path = r.URL.Path
		f.body, _ = io.ReadAll(r.Body)
		model := gjson.GetBytes(f.body, "model").String()

		switch {
		case r.URL.Path == "/v1/messages/count_tokens":
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"input_tokens":42}`)
		case strings.HasPrefix(r.URL.Path, "/v1/messages/batches/"):
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, batchJSON)
		case r.URL.Path == "/v1/messages" && gjson.GetBytes(f.body, "stream").Bool():
			w.Header().Set("Content-Type", "text/event-stream")
			io.WriteString(w, strings.ReplaceAll(replyStream, "claude-test", model))
		case r.URL.Path == "/v1/messages":
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, strings.ReplaceAll(replyJSON, "claude-test", model))
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"type":"error","error":{"type":"not_found_error","message":"no route"}}`)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

// run executes the command tree against the fake API and returns stdout.
func run(t *testing.T, api *fakeAPI, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, name := range []string{"CLAUDE_BASE_URL", "ANTHROPIC_BASE_URL", "CLAUDE_MODEL", "CLAUDE_MAX_RETRIES"} {
		t.Setenv(name, "")
	}

	cfg := filepath.Join(t.TempDir(), "config.yaml")
	body := "api_key: test-key\nmax_retries: 0\nmodel: claude-test\n"
	if api != nil {
		body += "base_url: " + api.srv.URL + "\n"
	}
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0o644))

	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetArgs(append([]string{"--config", cfg}, args...))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))

	err := root.Execute()
	return stdout.String(), err
}

func TestMessage(t *testing.T) {
	api := newFakeAPI(t)

	out, err := run(t, api, "", "message", "--max-tokens", "64", "--system", "Be brief.", "Why", "is", "the", "sky", "blue?")
	require.NoError(t, err)
	assert.Equal(t, "Rayleigh scattering.\n", out)

	assert.Equal(t, "/v1/messages", api.path)
	assert.Equal(t, "claude-test", gjson.GetBytes(api.body, "model").String())
	assert.Equal(t, int64(64), gjson.GetBytes(api.body, "max_tokens").Int())
	assert.Equal(t, "Be brief.", gjson.GetBytes(api.body, "system.0.text").String())
	assert.Equal(t, "Why is the sky blue?", gjson.GetBytes(api.body, "messages.0.content.0.text").String())
}

func TestMessage_Flags(t *testing.T) {
	api := newFakeAPI(t)

	out, err := run(t, api, "", "message", "--model", "claude-other", "--usage", "hi")
	require.NoError(t, err)
	assert.Equal(t, "claude-other", gjson.GetBytes(api.body, "model").String())
	assert.Contains(t, out, "cache read")
	assert.Contains(t, out, "17")
	assert.NotContains(t, out, "$", "unlisted models have no price")
}

func TestMessage_UsageCost(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		total string
	}{
		// 11 x $0.80/M + 4 x $4/M + 2 cache reads x $0.08/M
		{name: "message", args: []string{"message", "--usage", "-m", "claude-3-5-haiku-latest", "hi"}, total: "$0.00002496"},
		// 11 x $0.80/M + 6 x $4/M
		{name: "stream", args: []string{"message", "--stream", "--usage", "-m", "claude-3-5-haiku-latest", "hi"}, total: "$0.0000328"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t)

			out, err := run(t, api, "", tt.args...)
			require.NoError(t, err)
			assert.Contains(t, out, "COST")
			assert.Contains(t, out, tt.total)
		})
	}
}

func TestMessage_Stream(t *testing.T) {
	api := newFakeAPI(t)

	out, err := run(t, api, "", "message", "--stream", "--usage", "Tell me a story")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Once upon a time\n"), out)
	assert.True(t, gjson.GetBytes(api.body, "stream").Bool())
	assert.Contains(t, out, "total")
}

func TestMessage_PromptFromStdin(t *testing.T) {
	api := newFakeAPI(t)

	_, err := run(t, api, "  from stdin \n", "message")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", gjson.GetBytes(api.body, "messages.0.content.0.text").String())

	_, err = run(t, api, "   ", "message")
	assert.ErrorContains(t, err, "prompt is required")
}

func TestCountTokens(t *testing.T) {
	api := newFakeAPI(t)

	out, err := run(t, api, "", "count-tokens", "How long is this?")
	require.NoError(t, err)
	assert.Equal(t, "/v1/messages/count_tokens", api.path)
	assert.False(t, gjson.GetBytes(api.body, "max_tokens").Exists())
	assert.Contains(t, out, "claude-test")
	assert.Contains(t, out, "42")
}

func TestBatchGet(t *testing.T) {
	api := newFakeAPI(t)

	out, err := run(t, api, "", "batch", "get", "msgbatch_cli")
	require.NoError(t, err)
	assert.Equal(t, "/v1/messages/batches/msgbatch_cli", api.path)
	assert.Contains(t, out, "ended")
	assert.Contains(t, out, "https://example.com/results")

	_, err = run(t, api, "", "batch", "get")
	assert.Error(t, err)
}

func TestSniff(t *testing.T) {
	dir := t.TempDir()
	files := map[string][]byte{
		"a.png": {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00},
		"b.pdf": []byte("%PDF-1.4\n"),
		"c.txt": []byte("plain"),
		"d.gif": []byte("GI"),
	}
	var args []string
	for _, name := range []string{"a.png", "b.pdf", "c.txt", "d.gif"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, files[name], 0o644))
		args = append(args, path)
	}

	out, err := run(t, nil, "", append([]string{"sniff"}, args...)...)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[1], "image/png")
	assert.Contains(t, lines[1], "image")
	assert.Contains(t, lines[2], "application/pdf")
	assert.Contains(t, lines[2], "document")
	assert.Contains(t, lines[3], "unknown")
	assert.Contains(t, lines[4], "unknown")

	_, err = run(t, nil, "", "sniff", filepath.Join(dir, "missing.bin"))
	assert.Error(t, err)
}

func TestConfigErrors(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml"), "sniff", "x"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	assert.ErrorContains(t, root.Execute(), "failed to load config")
}
