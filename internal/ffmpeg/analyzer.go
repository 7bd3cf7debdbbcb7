// Package ffmpeg probes live streams with ffprobe and ffmpeg to classify
// their health. When neither binary is present, probes report skipped so
// the scanner stays neutral instead of recording false failures.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/muxarr/muxarr/internal/config"
	"github.com/muxarr/muxarr/internal/models"
)

const defaultBlackScreenThreshold = 0.95

// Analysis is the detail captured alongside a probe result. It is stored
// as JSON on the health check row.
type Analysis struct {
	HasVideo        bool    `json:"has_video"`
	HasAudio        bool    `json:"has_audio"`
	VideoCodec      string  `json:"video_codec,omitempty"`
	AudioCodec      string  `json:"audio_codec,omitempty"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	BlackFrameRatio float64 `json:"black_frame_ratio"`
	HTTPStatusCode  int     `json:"http_status_code,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// Analyzer runs ffprobe and ffmpeg against stream URLs.
type Analyzer struct {
	ffmpegPath  string
	ffprobePath string
	threshold   float64
	logger      *slog.Logger
}

// NewAnalyzer resolves the binaries from the configured paths, falling
// back to PATH lookup. Missing binaries are tolerated; probes then
// return skipped.
func NewAnalyzer(cfg config.FFmpegConfig, blackScreenThreshold float64, logger *slog.Logger) *Analyzer {
	if blackScreenThreshold <= 0 {
		blackScreenThreshold = defaultBlackScreenThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Analyzer{
		ffmpegPath:  resolveBinary(cfg.BinaryPath, "ffmpeg"),
		ffprobePath: resolveBinary(cfg.ProbePath, "ffprobe"),
		threshold:   blackScreenThreshold,
		logger:      logger,
	}
	if a.ffprobePath == "" {
		logger.Warn("ffprobe not found, health probes will be skipped")
	}
	return a
}

func resolveBinary(configured, name string) string {
	if configured != "" {
		return configured
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return ""
	}
	return path
}

// Available reports whether the analyzer can probe at all.
func (a *Analyzer) Available() bool {
	return a.ffprobePath != ""
}

// Analyze probes the stream for the given duration and classifies the
// outcome. The returned Analysis is non-nil for every result except
// skipped.
func (a *Analyzer) Analyze(ctx context.Context, streamURL string, duration time.Duration, userAgent string) (models.CheckResult, *Analysis, error) {
	if !a.Available() {
		return models.CheckResultSkipped, nil, nil
	}

	probe, stderr, err := a.runProbe(ctx, streamURL, duration, userAgent)
	if err != nil {
		result, analysis := classifyProbeFailure(ctx, stderr, err)
		return result, analysis, nil
	}

	analysis := &Analysis{}
	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			analysis.HasVideo = true
			analysis.VideoCodec = stream.CodecName
			analysis.Width = stream.Width
			analysis.Height = stream.Height
		case "audio":
			analysis.HasAudio = true
			analysis.AudioCodec = stream.CodecName
		}
	}

	if !analysis.HasVideo && !analysis.HasAudio {
		analysis.Error = "no decodable streams"
		return models.CheckResultInvalidStream, analysis, nil
	}
	if !analysis.HasVideo {
		return models.CheckResultAudioOnly, analysis, nil
	}

	if a.ffmpegPath != "" {
		ratio, err := a.measureBlackRatio(ctx, streamURL, duration, userAgent)
		if err != nil {
			a.logger.Debug("black frame analysis failed", slog.String("error", err.Error()))
		} else {
			analysis.BlackFrameRatio = ratio
			if ratio >= a.threshold {
				return models.CheckResultBlackScreen, analysis, nil
			}
		}
	}

	return models.CheckResultSuccess, analysis, nil
}

type probeStream struct {
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

func (a *Analyzer) runProbe(ctx context.Context, streamURL string, duration time.Duration, userAgent string) (*probeOutput, string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, duration+10*time.Second)
	defer cancel()

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-analyzeduration", strconv.FormatInt(duration.Microseconds(), 10),
	}
	if userAgent != "" {
		args = append(args, "-user_agent", userAgent)
	}
	args = append(args, "-i", streamURL)

	cmd := exec.CommandContext(probeCtx, a.ffprobePath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, stderr.String(), err
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, stderr.String(), fmt.Errorf("parsing ffprobe output: %w", err)
	}
	return &out, stderr.String(), nil
}

var blackDurationRe = regexp.MustCompile(`black_duration:\s*([\d.]+)`)

func (a *Analyzer) measureBlackRatio(ctx context.Context, streamURL string, duration time.Duration, userAgent string) (float64, error) {
	runCtx, cancel := context.WithTimeout(ctx, duration+15*time.Second)
	defer cancel()

	args := []string{"-v", "info", "-nostats"}
	if userAgent != "" {
		args = append(args, "-user_agent", userAgent)
	}
	args = append(args,
		"-i", streamURL,
		"-t", strconv.FormatFloat(duration.Seconds(), 'f', 1, 64),
		"-vf", "blackdetect=d=0.1:pix_th=0.10",
		"-an",
		"-f", "null", "-",
	)

	cmd := exec.CommandContext(runCtx, a.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, err
	}
	return blackRatio(stderr.String(), duration), nil
}

// blackRatio sums the blackdetect filter's reported durations over the
// sampled window.
func blackRatio(ffmpegOutput string, duration time.Duration) float64 {
	if duration <= 0 {
		return 0
	}
	var total float64
	for _, m := range blackDurationRe.FindAllStringSubmatch(ffmpegOutput, -1) {
		d, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		total += d
	}
	ratio := total / duration.Seconds()
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

var httpStatusRe = regexp.MustCompile(`Server returned (\d{3})`)

// classifyProbeFailure maps an ffprobe failure to a check result.
func classifyProbeFailure(ctx context.Context, stderr string, err error) (models.CheckResult, *Analysis) {
	analysis := &Analysis{Error: firstLine(stderr)}
	if analysis.Error == "" {
		analysis.Error = err.Error()
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) || strings.Contains(stderr, "Operation timed out") {
		return models.CheckResultTimeout, analysis
	}

	if m := httpStatusRe.FindStringSubmatch(stderr); m != nil {
		code, _ := strconv.Atoi(m[1])
		analysis.HTTPStatusCode = code
		return models.CheckResultHTTPError, analysis
	}

	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "connection reset"),
		strings.Contains(lower, "no route to host"),
		strings.Contains(lower, "failed to resolve"),
		strings.Contains(lower, "name or service not known"),
		strings.Contains(lower, "network is unreachable"):
		return models.CheckResultConnectionFailed, analysis
	case strings.Contains(lower, "timed out"):
		return models.CheckResultTimeout, analysis
	}

	return models.CheckResultInvalidStream, analysis
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
