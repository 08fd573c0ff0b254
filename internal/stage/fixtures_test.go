package stage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Kaustubhraj123/hiperseis/internal/arrival"
)

// Event 1 sits at (-20, 134) with station AU.STKA one degree due south, so
// the travel-time fixture below predicts 111 s for both phases.
const event1XML = `<?xml version="1.0" encoding="UTF-8"?>
<eventParameters>
  <event publicID="smi:local/event/1">
    <preferredOriginID>smi:local/origin/1</preferredOriginID>
    <preferredMagnitudeID>smi:local/mag/1</preferredMagnitudeID>
    <origin publicID="smi:local/origin/1">
      <time><value>2021-06-01T00:00:00Z</value></time>
      <latitude><value>-20.0</value></latitude>
      <longitude><value>134.0</value></longitude>
      <depth><value>10000</value></depth>
      <arrival>
        <pickID>smi:local/pick/1</pickID>
        <phase>P</phase>
      </arrival>
      <arrival>
        <pickID>smi:local/pick/2</pickID>
        <phase>Sg</phase>
        <timeResidual>1.5</timeResidual>
      </arrival>
      <arrival>
        <pickID>smi:local/pick/404</pickID>
        <phase>P</phase>
      </arrival>
      <arrival>
        <pickID>smi:local/pick/1</pickID>
        <phase>pP</phase>
      </arrival>
    </origin>
    <magnitude publicID="smi:local/mag/1">
      <mag><value>5.0</value></mag>
      <type>mb</type>
    </magnitude>
    <pick publicID="smi:local/pick/1">
      <time><value>2021-06-01T00:02:00.5Z</value></time>
      <waveformID networkCode="AU" stationCode="STKA" channelCode="BHZ"/>
      <phaseHint>P</phaseHint>
      <snr>10.0</snr>
      <quality>0.9</quality>
    </pick>
    <pick publicID="smi:local/pick/2">
      <time><value>2021-06-01T00:02:10.5Z</value></time>
      <waveformID networkCode="AU" stationCode="STKA" channelCode="BHN"/>
      <phaseHint>Sg</phaseHint>
    </pick>
  </event>
</eventParameters>`

// Event 2 has no magnitude, no depth and an unknown station, so the record
// leans on the locator's arrival fields.
const event2XML = `<?xml version="1.0" encoding="UTF-8"?>
<eventParameters>
  <event publicID="smi:local/event/2">
    <origin publicID="smi:local/origin/2">
      <time><value>2021-06-02T12:00:00Z</value></time>
      <latitude><value>-40.0</value></latitude>
      <longitude><value>150.0</value></longitude>
      <arrival>
        <pickID>smi:local/pick/3</pickID>
        <phase>Pn</phase>
        <azimuth>45.0</azimuth>
        <distance>12.5</distance>
        <timeResidual>-0.75</timeResidual>
      </arrival>
    </origin>
    <pick publicID="smi:local/pick/3">
      <time><value>2021-06-02T12:03:00Z</value></time>
      <waveformID networkCode="AU" stationCode="QIS" channelCode="BHZ"/>
      <phaseHint>Pn</phaseHint>
    </pick>
  </event>
</eventParameters>`

const stationsYAML = `networks:
  - code: AU
    stations:
      - code: STKA
        latitude: -21.0
        longitude: 134.0
        elevation_m: 250.0
`

// sampleTabData mirrors the iLoc table layout used by the traveltime
// package: distances 0..3 degrees, depths 0 and 10 km.
func sampleTabData() string {
	return strings.Join([]string{
		"# test travel-time table",
		"# delta samples",
		" 0.0 1.0 2.0",
		" 3.0",
		"# depth samples",
		" 0.0 10.0",
		"",
		"# travel times (rows - delta, columns - depth)",
		"",
		" 0.0 1.5",
		" 110.0 111.0",
		" 220.0 221.0",
		" 330.0 -999.0",
		"",
		"# dtdd (rows - delta, columns - depth)",
		"",
		" 10.0 10.1",
		" 10.2 10.3",
		" 10.4 10.5",
		" 10.6 -999.0",
		"",
		"# dtdh (rows - delta, columns - depth)",
		"",
		" -1.0 -1.1",
		" -1.2 -1.3",
		" -1.4 -1.5",
		" -1.6 -999.0",
		"",
		"",
		"",
	}, "\n")
}

// writeWorkspaceFiles lays relative paths with the given contents out under
// a fresh temp dir and returns it.
func writeWorkspaceFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// testRecord builds a fully-populated arrival record for stage tests.
// Callers tweak the fields they care about.
func testRecord(event, network, station, phase string, distanceDeg float64) arrival.Record {
	origin := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	return arrival.Record{
		EventID:       event,
		OriginTime:    origin,
		Magnitude:     4.5,
		OriginLon:     134.0,
		OriginLat:     -20.0,
		OriginDepthKm: 10.0,
		Network:       network,
		Station:       station,
		Channel:       "BHZ",
		PickTime:      origin.Add(2 * time.Minute),
		Phase:         phase,
		StationLon:    134.0,
		StationLat:    -21.0,
		Azimuth:       180.0,
		BackAzimuth:   0.0,
		DistanceDeg:   distanceDeg,
		Residual:      0.5,
		SNR:           8.0,
		Quality:       0.7,
	}
}

// writeRecords drops an arrival CSV into the workspace and returns its
// absolute path.
func writeRecords(t *testing.T, ws, name string, records []arrival.Record) string {
	t.Helper()
	path := filepath.Join(ws, name)
	require.NoError(t, arrival.WriteFile(path, records))
	return path
}

// gatherFixture is the standard gather workspace: two event files, a
// station inventory and P/S tables for ak135.
func gatherFixture(t *testing.T) string {
	t.Helper()
	return writeWorkspaceFiles(t, map[string]string{
		"events/a.xml":    event1XML,
		"events/b.xml":    event2XML,
		"stations.yaml":   stationsYAML,
		"tt/ak135.P.tab":  sampleTabData(),
		"tt/ak135.S.tab":  sampleTabData(),
		"tt/iasp91.P.tab": sampleTabData(),
		"tt/iasp91.S.tab": sampleTabData(),
	})
}
