package fcc

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/muxarr/muxarr/internal/models"
)

// Field positions in the LMS facility.dat pipe-delimited dump.
const (
	fieldCommCity         = 0
	fieldCommState        = 1
	fieldCallsign         = 5
	fieldService          = 10
	fieldStatus           = 11
	fieldFacilityID       = 13
	fieldNetworkAfil      = 25
	fieldNielsenDma       = 26
	fieldTvVirtualChannel = 27

	// minFields is the highest index we read, plus one.
	minFields = 28
)

// recordTerminator ends every facility record.
const recordTerminator = "^|"

// keptServices are the broadcast TV service codes worth importing. The
// dump also carries radio and auxiliary services.
var keptServices = map[string]bool{
	"DTV": true,
	"TV":  true,
	"LPT": true,
	"LPD": true,
	"LPA": true,
	"LPX": true,
}

// activeStatus marks a licensed, operating facility.
const activeStatus = "LICEN"

// ParseStats summarizes one facility.dat parse.
type ParseStats struct {
	Records  int
	Kept     int
	Skipped  int
	BadLines int
}

// ParseFacilities reads an LMS facility.dat stream and returns facility
// rows for the retained TV services. Malformed lines are counted and
// skipped, never fatal.
func ParseFacilities(r io.Reader, logger *slog.Logger) ([]*models.FccFacility, *ParseStats, error) {
	if logger == nil {
		logger = slog.Default()
	}

	stats := &ParseStats{}
	var facilities []*models.FccFacility

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		stats.Records++

		line = strings.TrimSuffix(strings.TrimRight(line, "\r"), recordTerminator)
		fields := strings.Split(line, "|")
		if len(fields) < minFields {
			stats.BadLines++
			continue
		}

		service := strings.TrimSpace(fields[fieldService])
		if !keptServices[service] {
			stats.Skipped++
			continue
		}

		callsign := strings.ToUpper(strings.TrimSpace(fields[fieldCallsign]))
		if callsign == "" {
			stats.Skipped++
			continue
		}

		facilityID, err := strconv.Atoi(strings.TrimSpace(fields[fieldFacilityID]))
		if err != nil {
			stats.BadLines++
			continue
		}

		facilities = append(facilities, &models.FccFacility{
			FacilityID:         facilityID,
			Callsign:           callsign,
			CommunityCity:      strings.ToUpper(strings.TrimSpace(fields[fieldCommCity])),
			CommunityState:     strings.ToUpper(strings.TrimSpace(fields[fieldCommState])),
			NetworkAffiliation: NormalizeAffiliation(fields[fieldNetworkAfil]),
			NielsenDma:         strings.TrimSpace(fields[fieldNielsenDma]),
			TvVirtualChannel:   strings.TrimSpace(fields[fieldTvVirtualChannel]),
			ServiceCode:        service,
			Active:             strings.TrimSpace(fields[fieldStatus]) == activeStatus,
		})
		stats.Kept++
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("reading facility data: %w", err)
	}

	logger.Info("facility data parsed",
		slog.Int("records", stats.Records),
		slog.Int("kept", stats.Kept),
		slog.Int("skipped", stats.Skipped),
		slog.Int("bad_lines", stats.BadLines),
	)
	return facilities, stats, nil
}
