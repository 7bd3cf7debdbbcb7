package fcc

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
)

// maxArchiveBytes bounds the facility archive download. The dump is a few
// tens of megabytes compressed.
const maxArchiveBytes = 512 << 20

// Syncer downloads the FCC facility archive and replaces the stored
// facility table. A failed download leaves existing data in place.
type Syncer struct {
	repo   repository.FccRepository
	meta   repository.SyncMetadataRepository
	client *http.Client
	url    string
	logger *slog.Logger
}

// NewSyncer creates an FCC dataset syncer.
func NewSyncer(repo repository.FccRepository, meta repository.SyncMetadataRepository, url string, timeout time.Duration, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		repo:   repo,
		meta:   meta,
		client: &http.Client{Timeout: timeout},
		url:    url,
		logger: logger,
	}
}

// Sync fetches, parses, and imports the facility dataset.
func (s *Syncer) Sync(ctx context.Context) (*ParseStats, error) {
	started := time.Now()

	data, err := s.download(ctx)
	if err != nil {
		return nil, err
	}

	reader, err := s.openFacilityData(data)
	if err != nil {
		return nil, err
	}

	facilities, stats, err := ParseFacilities(reader, s.logger)
	if err != nil {
		return nil, err
	}
	if len(facilities) == 0 {
		return nil, fmt.Errorf("facility archive contained no usable records")
	}

	if err := s.repo.ReplaceFacilities(ctx, facilities); err != nil {
		return nil, fmt.Errorf("replacing facilities: %w", err)
	}
	if err := s.meta.SetTime(ctx, models.MetaKeyLastFccSync, time.Now()); err != nil {
		return nil, fmt.Errorf("recording FCC sync time: %w", err)
	}

	s.logger.Info("FCC facility data imported",
		slog.Int("facilities", stats.Kept),
		slog.Duration("elapsed", time.Since(started)),
	)
	return stats, nil
}

func (s *Syncer) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building FCC request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading facility archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facility archive returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveBytes))
	if err != nil {
		return nil, fmt.Errorf("reading facility archive: %w", err)
	}
	return data, nil
}

// openFacilityData returns a reader over facility.dat, whether the
// payload is the zip archive or the bare pipe-delimited file.
func (s *Syncer) openFacilityData(data []byte) (io.Reader, error) {
	if len(data) < 4 || !bytes.HasPrefix(data, []byte("PK")) {
		return bytes.NewReader(data), nil
	}

	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening facility archive: %w", err)
	}
	for _, f := range archive.File {
		if !strings.EqualFold(f.Name, "facility.dat") && !strings.HasSuffix(strings.ToLower(f.Name), "/facility.dat") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening facility.dat: %w", err)
		}
		// The archive is held in memory; read the entry eagerly so the
		// ReadCloser does not escape.
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading facility.dat: %w", err)
		}
		return bytes.NewReader(content), nil
	}
	return nil, fmt.Errorf("facility.dat not found in archive")
}
