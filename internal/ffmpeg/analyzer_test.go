package ffmpeg

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/muxarr/muxarr/internal/config"
	"github.com/muxarr/muxarr/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_SkippedWithoutBinaries(t *testing.T) {
	a := NewAnalyzer(config.FFmpegConfig{BinaryPath: "/nonexistent/ffmpeg", ProbePath: ""}, 0.95,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.ffprobePath = ""

	result, analysis, err := a.Analyze(context.Background(), "http://stream.example/1.ts", 5*time.Second, "")
	require.NoError(t, err)
	assert.Equal(t, models.CheckResultSkipped, result)
	assert.Nil(t, analysis)
}

func TestClassifyProbeFailure(t *testing.T) {
	cases := []struct {
		name   string
		stderr string
		want   models.CheckResult
	}{
		{"http 404", "http://x: Server returned 404 Not Found", models.CheckResultHTTPError},
		{"http 503", "Server returned 503 Service Unavailable", models.CheckResultHTTPError},
		{"refused", "Connection to tcp://x:80 failed: Connection refused", models.CheckResultConnectionFailed},
		{"dns", "Failed to resolve hostname x: Name or service not known", models.CheckResultConnectionFailed},
		{"timeout", "x: Connection timed out", models.CheckResultTimeout},
		{"garbage", "Invalid data found when processing input", models.CheckResultInvalidStream},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, analysis := classifyProbeFailure(context.Background(), tc.stderr, assertErr{})
			assert.Equal(t, tc.want, result)
			require.NotNil(t, analysis)
			assert.NotEmpty(t, analysis.Error)
		})
	}
}

func TestClassifyProbeFailure_HTTPStatusCaptured(t *testing.T) {
	_, analysis := classifyProbeFailure(context.Background(), "Server returned 403 Forbidden", assertErr{})
	assert.Equal(t, 403, analysis.HTTPStatusCode)
}

func TestClassifyProbeFailure_ContextDeadline(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	result, _ := classifyProbeFailure(ctx, "", assertErr{})
	assert.Equal(t, models.CheckResultTimeout, result)
}

func TestBlackRatio(t *testing.T) {
	out := `[blackdetect @ 0x1] black_start:0 black_end:2.5 black_duration:2.5
[blackdetect @ 0x1] black_start:3 black_end:5 black_duration:2.0`
	assert.InDelta(t, 0.9, blackRatio(out, 5*time.Second), 0.001)
	assert.Equal(t, 0.0, blackRatio("frame=  100 fps= 25", 5*time.Second))
	assert.Equal(t, 1.0, blackRatio(out, 2*time.Second))
	assert.Equal(t, 0.0, blackRatio(out, 0))
}

type assertErr struct{}

func (assertErr) Error() string { return "exit status 1" }
