package models

import (
	"fmt"
	"time"
)

// MissingSentinel is the raw-file marker for a value that was not measured.
const MissingSentinel = -9999

// rawDateFormat is the fixed 8-digit date layout used by station files.
const rawDateFormat = "20060102"

// WeatherRecord is one station's measurements for one calendar day.
// Optional measurements are nil when the source flagged them as missing.
// The (StationID, Date) pair is unique in the store.
type WeatherRecord struct {
	ID            int64     `json:"-" db:"id"`
	StationID     string    `json:"station_id" db:"station_id"`
	Date          time.Time `json:"date" db:"date"`
	MaxTemp       *float64  `json:"max_temp" db:"max_temp"`
	MinTemp       *float64  `json:"min_temp" db:"min_temp"`
	Precipitation *float64  `json:"precipitation" db:"precipitation"`
	CreatedAt     time.Time `json:"-" db:"created_at"`
}

// Year returns the calendar year of the record's date.
func (r *WeatherRecord) Year() int {
	return r.Date.Year()
}

// WeatherStats is one station's aggregate for one calendar year.
// The stats table is a derived cache: it is rebuilt wholesale from
// weather_records and has no independent write path. The (StationID, Year)
// pair is unique.
type WeatherStats struct {
	ID                 int64     `json:"-" db:"id"`
	StationID          string    `json:"station_id" db:"station_id"`
	Year               int       `json:"year" db:"year"`
	AvgMaxTemp         *float64  `json:"avg_max_temp" db:"avg_max_temp"`
	AvgMinTemp         *float64  `json:"avg_min_temp" db:"avg_min_temp"`
	TotalPrecipitation *float64  `json:"total_precipitation" db:"total_precipitation"`
	ComputedAt         time.Time `json:"-" db:"computed_at"`
}

// RawRecord is a single line from a station data file, prior to
// normalization. Numeric fields hold tenths of a unit and may carry the
// -9999 missing sentinel.
type RawRecord struct {
	Date          string
	MaxTempTenths int // 0.1 degrees C
	MinTempTenths int // 0.1 degrees C
	PrecipTenths  int // 0.1 mm
}

// ToRecord normalizes a raw row into a WeatherRecord for the given station:
// the sentinel maps to nil, everything else is divided by 10 (tenths of a
// degree C to degrees C, tenths of a mm to cm).
func (r *RawRecord) ToRecord(stationID string) (*WeatherRecord, error) {
	date, err := time.Parse(rawDateFormat, r.Date)
	if err != nil {
		return nil, &InvalidDateError{Value: r.Date}
	}

	return &WeatherRecord{
		StationID:     stationID,
		Date:          date,
		MaxTemp:       fromTenths(r.MaxTempTenths),
		MinTemp:       fromTenths(r.MinTempTenths),
		Precipitation: fromTenths(r.PrecipTenths),
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func fromTenths(v int) *float64 {
	if v == MissingSentinel {
		return nil
	}
	f := float64(v) / 10.0
	return &f
}

// ParseError reports a malformed row in a station file. Under the default
// ingestion policy a ParseError fails the whole file.
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// IsTransient returns false: malformed input does not fix itself on retry.
func (e *ParseError) IsTransient() bool {
	return false
}

// InvalidDateError reports a row whose date field could not be parsed.
// Such rows are dropped individually rather than failing the file.
type InvalidDateError struct {
	Value string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q, expected YYYYMMDD", e.Value)
}

func (e *InvalidDateError) IsTransient() bool {
	return false
}
