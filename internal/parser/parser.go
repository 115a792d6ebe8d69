// Package parser reads raw station observation files and normalizes them
// into candidate weather records.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"weather-pipeline/internal/models"
)

// columnsPerRow is the fixed layout of a station file:
// date, max temp, min temp, precipitation.
const columnsPerRow = 4

// FileReader streams one station file as normalized weather records.
// It is a single forward pass over the file; reading again requires a
// new FileReader.
type FileReader struct {
	file    *os.File
	scanner *bufio.Scanner
	path    string
	station string
	line    int
	dropped int
}

// Open opens a station data file. The station identifier is the file's
// base name with the extension stripped, e.g. wx_data/USC00110072.txt
// identifies station USC00110072.
func Open(path string) (*FileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}

	name := filepath.Base(path)
	return &FileReader{
		file:    f,
		scanner: bufio.NewScanner(f),
		path:    path,
		station: strings.TrimSuffix(name, filepath.Ext(name)),
	}, nil
}

// Station returns the station identifier derived from the file name.
func (r *FileReader) Station() string {
	return r.station
}

// Next returns the next normalized record from the file. It returns io.EOF
// when the file is exhausted and a *models.ParseError when a row is
// malformed (wrong column count or a non-integer measurement). Rows whose
// date fails to parse are dropped and counted, not returned.
func (r *FileReader) Next() (*models.WeatherRecord, error) {
	for r.scanner.Scan() {
		r.line++
		line := r.scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		raw, err := parseRow(line)
		if err != nil {
			return nil, &models.ParseError{File: r.path, Line: r.line, Msg: err.Error()}
		}

		rec, err := raw.ToRecord(r.station)
		if err != nil {
			// Invalid date: exclude the whole row, keep going.
			r.dropped++
			continue
		}

		return rec, nil
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.path, err)
	}
	return nil, io.EOF
}

// Dropped returns the number of rows excluded so far because their date
// field was unparseable.
func (r *FileReader) Dropped() int {
	return r.dropped
}

// Close closes the underlying file.
func (r *FileReader) Close() error {
	return r.file.Close()
}

// parseRow splits a tab-separated row into its raw integer fields.
func parseRow(line string) (*models.RawRecord, error) {
	parts := strings.Split(line, "\t")
	if len(parts) != columnsPerRow {
		return nil, fmt.Errorf("expected %d tab-separated fields, got %d", columnsPerRow, len(parts))
	}

	maxTemp, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid max temperature %q", parts[1])
	}

	minTemp, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return nil, fmt.Errorf("invalid min temperature %q", parts[2])
	}

	precip, err := strconv.Atoi(strings.TrimSpace(parts[3]))
	if err != nil {
		return nil, fmt.Errorf("invalid precipitation %q", parts[3])
	}

	return &models.RawRecord{
		Date:          strings.TrimSpace(parts[0]),
		MaxTempTenths: maxTemp,
		MinTempTenths: minTemp,
		PrecipTenths:  precip,
	}, nil
}
