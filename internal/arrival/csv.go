package arrival

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Header is the column order of an arrival CSV. Every file written by this
// package starts with it, and readers reject files whose header differs.
var Header = []string{
	"event_id",
	"origin_time",
	"magnitude",
	"origin_lon",
	"origin_lat",
	"origin_depth_km",
	"network",
	"station",
	"channel",
	"pick_time",
	"phase",
	"station_lon",
	"station_lat",
	"azimuth",
	"back_azimuth",
	"distance_deg",
	"residual",
	"snr",
	"quality",
}

// timeLayout is the wire form of timestamps. All times are written in UTC.
const timeLayout = time.RFC3339Nano

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseFloat(s string) (float64, error) {
	// strconv accepts "NaN" directly, which is how missing values travel.
	return strconv.ParseFloat(s, 64)
}

// Write streams records to w as CSV, header first.
func Write(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}

	row := make([]string, len(Header))
	for _, r := range records {
		row[0] = r.EventID
		row[1] = r.OriginTime.UTC().Format(timeLayout)
		row[2] = formatFloat(r.Magnitude)
		row[3] = formatFloat(r.OriginLon)
		row[4] = formatFloat(r.OriginLat)
		row[5] = formatFloat(r.OriginDepthKm)
		row[6] = r.Network
		row[7] = r.Station
		row[8] = r.Channel
		row[9] = r.PickTime.UTC().Format(timeLayout)
		row[10] = r.Phase
		row[11] = formatFloat(r.StationLon)
		row[12] = formatFloat(r.StationLat)
		row[13] = formatFloat(r.Azimuth)
		row[14] = formatFloat(r.BackAzimuth)
		row[15] = formatFloat(r.DistanceDeg)
		row[16] = formatFloat(r.Residual)
		row[17] = formatFloat(r.SNR)
		row[18] = formatFloat(r.Quality)
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile writes records to path, creating parent directories as needed.
func WriteFile(path string, records []Record) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := Write(f, records); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// Read parses an arrival CSV from r. The header row is validated against
// Header before any records are decoded.
func Read(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, err
	}
	for i, name := range Header {
		if header[i] != name {
			return nil, fmt.Errorf("header column %d is %q, want %q", i+1, header[i], name)
		}
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadFile parses the arrival CSV at path.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return records, nil
}

func parseRow(row []string) (Record, error) {
	var rec Record
	var err error

	rec.EventID = row[0]
	if rec.OriginTime, err = time.Parse(timeLayout, row[1]); err != nil {
		return rec, fmt.Errorf("origin_time: %w", err)
	}
	if rec.Magnitude, err = parseFloat(row[2]); err != nil {
		return rec, fmt.Errorf("magnitude: %w", err)
	}
	if rec.OriginLon, err = parseFloat(row[3]); err != nil {
		return rec, fmt.Errorf("origin_lon: %w", err)
	}
	if rec.OriginLat, err = parseFloat(row[4]); err != nil {
		return rec, fmt.Errorf("origin_lat: %w", err)
	}
	if rec.OriginDepthKm, err = parseFloat(row[5]); err != nil {
		return rec, fmt.Errorf("origin_depth_km: %w", err)
	}
	rec.Network = row[6]
	rec.Station = row[7]
	rec.Channel = row[8]
	if rec.PickTime, err = time.Parse(timeLayout, row[9]); err != nil {
		return rec, fmt.Errorf("pick_time: %w", err)
	}
	rec.Phase = row[10]
	if rec.StationLon, err = parseFloat(row[11]); err != nil {
		return rec, fmt.Errorf("station_lon: %w", err)
	}
	if rec.StationLat, err = parseFloat(row[12]); err != nil {
		return rec, fmt.Errorf("station_lat: %w", err)
	}
	if rec.Azimuth, err = parseFloat(row[13]); err != nil {
		return rec, fmt.Errorf("azimuth: %w", err)
	}
	if rec.BackAzimuth, err = parseFloat(row[14]); err != nil {
		return rec, fmt.Errorf("back_azimuth: %w", err)
	}
	if rec.DistanceDeg, err = parseFloat(row[15]); err != nil {
		return rec, fmt.Errorf("distance_deg: %w", err)
	}
	if rec.Residual, err = parseFloat(row[16]); err != nil {
		return rec, fmt.Errorf("residual: %w", err)
	}
	if rec.SNR, err = parseFloat(row[17]); err != nil {
		return rec, fmt.Errorf("snr: %w", err)
	}
	if rec.Quality, err = parseFloat(row[18]); err != nil {
		return rec, fmt.Errorf("quality: %w", err)
	}
	return rec, nil
}
