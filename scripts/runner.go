package scripts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

type Runner struct {
	config Config
	logger logrus.FieldLogger
}

func NewRunner(cfg Config, logger logrus.FieldLogger) (*Runner, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{config: cfg, logger: logger}, nil
}

func validateConfig(cfg Config) error {
	if cfg.YtDlpPath == "" {
		return fmt.Errorf("yt-dlp path is required")
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be set")
	}
	if cfg.TempDir != "" {
		if err := os.MkdirAll(cfg.TempDir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", cfg.TempDir, err)
		}
	}
	return nil
}

// DownloadSubtitles asks yt-dlp for manual or automatic subtitles in lang and
// returns the first VTT or SRT file it wrote.
func (r *Runner) DownloadSubtitles(ctx context.Context, videoID, lang string) (*Subtitles, error) {
	const op = "Runner.DownloadSubtitles"

	workDir, err := os.MkdirTemp(r.config.TempDir, "subs-"+videoID+"-")
	if err != nil {
		return nil, newScriptError(op, err, "failed to create work dir")
	}
	defer os.RemoveAll(workDir)

	args := buildSubtitleArgs(videoID, lang, workDir, r.config.ProxyURL)
	if _, err := r.run(ctx, args); err != nil {
		return nil, err
	}

	return findSubtitleFile(workDir, lang)
}

func buildSubtitleArgs(videoID, lang, workDir, proxy string) []string {
	args := []string{
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", lang,
		"--sub-format", "vtt/srt/best",
		"--no-warnings",
		"--quiet",
		"-o", filepath.Join(workDir, "%(id)s.%(ext)s"),
	}
	if proxy != "" {
		args = append(args, "--proxy", proxy)
	}
	return append(args, "https://www.youtube.com/watch?v="+videoID)
}

func findSubtitleFile(dir, lang string) (*Subtitles, error) {
	const op = "Runner.findSubtitleFile"

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, newScriptError(op, err, "failed to list work dir")
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	// vtt is preferred over srt when both exist
	for _, ext := range []string{".vtt", ".srt"} {
		for _, name := range names {
			if !strings.HasSuffix(name, ext) {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				return nil, newScriptError(op, err, "failed to read subtitle file")
			}
			return &Subtitles{
				Content:  string(data),
				Format:   strings.TrimPrefix(ext, "."),
				Language: lang,
			}, nil
		}
	}

	return nil, newScriptError(op, nil, "no subtitles found for this video")
}

func (r *Runner) run(ctx context.Context, args []string) ([]byte, error) {
	const op = "Runner.run"

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	logger := r.logger.WithFields(logrus.Fields{
		"command": r.config.YtDlpPath,
		"args":    args,
	})
	logger.Debug("Executing command")

	cmd := exec.CommandContext(ctx, r.config.YtDlpPath, args...)
	cmd.Env = append(os.Environ(), r.config.Environment...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrOutput := stderr.String()
		logger.WithFields(logrus.Fields{
			"error":  err,
			"stderr": stderrOutput,
		}).Error("Command execution failed")

		if ctx.Err() == context.DeadlineExceeded {
			return nil, newScriptError(op, ctx.Err(), "command timed out")
		}
		scriptErr := newScriptError(op, err, "command execution failed")
		scriptErr.Stderr = stderrOutput
		return nil, scriptErr
	}

	return stdout.Bytes(), nil
}
