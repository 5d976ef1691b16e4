package scripts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeFakeTool writes a shell script standing in for yt-dlp.
func writeFakeTool(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yt-dlp")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("writing fake tool: %v", err)
	}
	return path
}

func TestDownloadSubtitlesPrefersVTT(t *testing.T) {
	// The output template is the argument after -o.
	tool := writeFakeTool(t, `
while [ "$1" != "-o" ]; do shift; done
dir=$(dirname "$2")
printf '1\n00:00:01,000 --> 00:00:02,000\nsrt text\n' > "$dir/abc.en.srt"
printf 'WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nvtt text\n' > "$dir/abc.en.vtt"
`)

	runner, err := NewRunner(Config{YtDlpPath: tool, Timeout: 5 * time.Second, TempDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	subs, err := runner.DownloadSubtitles(context.Background(), "abcdefghijk", "en")
	if err != nil {
		t.Fatalf("DownloadSubtitles() error = %v", err)
	}
	if subs.Format != "vtt" {
		t.Errorf("got format %q want vtt", subs.Format)
	}
	if !strings.Contains(subs.Content, "vtt text") {
		t.Errorf("unexpected content %q", subs.Content)
	}
}

func TestDownloadSubtitlesNoFiles(t *testing.T) {
	tool := writeFakeTool(t, "exit 0")

	runner, err := NewRunner(Config{YtDlpPath: tool, Timeout: 5 * time.Second, TempDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	_, err = runner.DownloadSubtitles(context.Background(), "abcdefghijk", "en")
	var scriptErr *ScriptError
	if !errors.As(err, &scriptErr) {
		t.Fatalf("expected ScriptError, got %v", err)
	}
}

func TestDownloadSubtitlesCommandFailure(t *testing.T) {
	tool := writeFakeTool(t, "echo 'ERROR: video unavailable' >&2; exit 1")

	runner, err := NewRunner(Config{YtDlpPath: tool, Timeout: 5 * time.Second, TempDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	_, err = runner.DownloadSubtitles(context.Background(), "abcdefghijk", "en")
	var scriptErr *ScriptError
	if !errors.As(err, &scriptErr) {
		t.Fatalf("expected ScriptError, got %v", err)
	}
	if !strings.Contains(scriptErr.Stderr, "video unavailable") {
		t.Errorf("expected stderr to be captured, got %q", scriptErr.Stderr)
	}
}

func TestBuildSubtitleArgs(t *testing.T) {
	args := buildSubtitleArgs("abcdefghijk", "en", "/tmp/w", "http://proxy:80")
	joined := strings.Join(args, " ")

	for _, want := range []string{"--skip-download", "--sub-langs en", "--proxy http://proxy:80"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
	if args[len(args)-1] != "https://www.youtube.com/watch?v=abcdefghijk" {
		t.Errorf("last arg should be the watch URL, got %q", args[len(args)-1])
	}
}

func TestNewRunnerValidation(t *testing.T) {
	if _, err := NewRunner(Config{Timeout: time.Second}, nil); err == nil {
		t.Error("expected error for missing path")
	}
	if _, err := NewRunner(Config{YtDlpPath: "yt-dlp"}, nil); err == nil {
		t.Error("expected error for missing timeout")
	}
}
