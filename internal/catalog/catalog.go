// Package catalog reads seismic event catalogs from QuakeML-flavored XML.
// It understands both a bare <eventParameters> document and one wrapped in
// a <quakeml> root, and flattens the quantity elements (<time><value>,
// <latitude><value>, ...) into plain Go values.
package catalog

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"time"
)

// Document is a parsed event catalog.
type Document struct {
	Events []Event
}

// Event is one event with its origins, magnitudes and picks.
type Event struct {
	PublicID             string
	PreferredOriginID    string
	PreferredMagnitudeID string
	Origins              []Origin
	Magnitudes           []Magnitude
	Picks                []Pick
}

// Origin is a located source hypothesis. DepthKm is NaN when the origin
// carries no depth estimate.
type Origin struct {
	PublicID  string
	Time      time.Time
	Latitude  float64
	Longitude float64
	DepthKm   float64
	Arrivals  []Arrival
}

// Arrival associates a pick with an origin. The float fields are reported
// by the locator and may be absent.
type Arrival struct {
	PickID       string
	Phase        string
	Azimuth      *float64
	Distance     *float64
	TimeResidual *float64
}

// Magnitude is one magnitude estimate for an event.
type Magnitude struct {
	PublicID string
	Value    float64
	Type     string
}

// Pick is a phase onset observation on one channel. SNR and Quality are
// extensions of the base schema and may be absent.
type Pick struct {
	PublicID  string
	Time      time.Time
	Network   string
	Station   string
	Channel   string
	PhaseHint string
	SNR       *float64
	Quality   *float64
}

// PreferredOrigin resolves the event's preferred origin. When the
// preferredOriginID is missing or dangling, the first origin stands in.
// Returns nil for an event with no origins at all.
func (e *Event) PreferredOrigin() *Origin {
	if e.PreferredOriginID != "" {
		for i := range e.Origins {
			if e.Origins[i].PublicID == e.PreferredOriginID {
				return &e.Origins[i]
			}
		}
	}
	if len(e.Origins) > 0 {
		return &e.Origins[0]
	}
	return nil
}

// PreferredMagnitude resolves the event's preferred magnitude the same way
// PreferredOrigin does. Returns nil when the event has no magnitudes.
func (e *Event) PreferredMagnitude() *Magnitude {
	if e.PreferredMagnitudeID != "" {
		for i := range e.Magnitudes {
			if e.Magnitudes[i].PublicID == e.PreferredMagnitudeID {
				return &e.Magnitudes[i]
			}
		}
	}
	if len(e.Magnitudes) > 0 {
		return &e.Magnitudes[0]
	}
	return nil
}

// Pick returns the pick with the given publicID, or nil.
func (e *Event) Pick(id string) *Pick {
	for i := range e.Picks {
		if e.Picks[i].PublicID == id {
			return &e.Picks[i]
		}
	}
	return nil
}

// --- XML wire structures ---

type xmlQuakeml struct {
	EventParameters xmlEventParameters `xml:"eventParameters"`
}

type xmlEventParameters struct {
	Events []xmlEvent `xml:"event"`
}

type xmlEvent struct {
	PublicID             string         `xml:"publicID,attr"`
	PreferredOriginID    string         `xml:"preferredOriginID"`
	PreferredMagnitudeID string         `xml:"preferredMagnitudeID"`
	Origins              []xmlOrigin    `xml:"origin"`
	Magnitudes           []xmlMagnitude `xml:"magnitude"`
	Picks                []xmlPick      `xml:"pick"`
}

type xmlTimeQuantity struct {
	Value string `xml:"value"`
}

type xmlRealQuantity struct {
	Value *float64 `xml:"value"`
}

type xmlOrigin struct {
	PublicID  string          `xml:"publicID,attr"`
	Time      xmlTimeQuantity `xml:"time"`
	Latitude  xmlRealQuantity `xml:"latitude"`
	Longitude xmlRealQuantity `xml:"longitude"`
	Depth     xmlRealQuantity `xml:"depth"`
	Arrivals  []xmlArrival    `xml:"arrival"`
}

type xmlArrival struct {
	PickID       string   `xml:"pickID"`
	Phase        string   `xml:"phase"`
	Azimuth      *float64 `xml:"azimuth"`
	Distance     *float64 `xml:"distance"`
	TimeResidual *float64 `xml:"timeResidual"`
}

type xmlMagnitude struct {
	PublicID string          `xml:"publicID,attr"`
	Mag      xmlRealQuantity `xml:"mag"`
	Type     string          `xml:"type"`
}

type xmlWaveformID struct {
	NetworkCode string `xml:"networkCode,attr"`
	StationCode string `xml:"stationCode,attr"`
	ChannelCode string `xml:"channelCode,attr"`
}

type xmlPick struct {
	PublicID   string          `xml:"publicID,attr"`
	Time       xmlTimeQuantity `xml:"time"`
	WaveformID xmlWaveformID   `xml:"waveformID"`
	PhaseHint  string          `xml:"phaseHint"`
	SNR        *float64        `xml:"snr"`
	Quality    *float64        `xml:"quality"`
}

// timeLayouts are the accepted timestamp forms. Catalogs in the wild mix
// zoned and bare timestamps; bare ones are taken as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// Parse reads one catalog document from r.
func Parse(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)

	var params xmlEventParameters
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("no eventParameters element found")
		}
		if err != nil {
			return nil, err
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "quakeml":
			var root xmlQuakeml
			if err := dec.DecodeElement(&root, &start); err != nil {
				return nil, err
			}
			params = root.EventParameters
		case "eventParameters":
			if err := dec.DecodeElement(&params, &start); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unexpected root element <%s>", start.Name.Local)
		}
		break
	}

	doc := &Document{Events: make([]Event, 0, len(params.Events))}
	for _, xe := range params.Events {
		ev, err := convertEvent(xe)
		if err != nil {
			return nil, err
		}
		doc.Events = append(doc.Events, ev)
	}
	return doc, nil
}

// ParseFile reads the catalog document at path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}

func convertEvent(xe xmlEvent) (Event, error) {
	ev := Event{
		PublicID:             xe.PublicID,
		PreferredOriginID:    xe.PreferredOriginID,
		PreferredMagnitudeID: xe.PreferredMagnitudeID,
	}

	for _, xo := range xe.Origins {
		o, err := convertOrigin(xo)
		if err != nil {
			return ev, fmt.Errorf("event %q: %w", xe.PublicID, err)
		}
		ev.Origins = append(ev.Origins, o)
	}

	for _, xm := range xe.Magnitudes {
		m := Magnitude{PublicID: xm.PublicID, Value: math.NaN(), Type: xm.Type}
		if xm.Mag.Value != nil {
			m.Value = *xm.Mag.Value
		}
		ev.Magnitudes = append(ev.Magnitudes, m)
	}

	for _, xp := range xe.Picks {
		p, err := convertPick(xp)
		if err != nil {
			return ev, fmt.Errorf("event %q: %w", xe.PublicID, err)
		}
		ev.Picks = append(ev.Picks, p)
	}

	return ev, nil
}

func convertOrigin(xo xmlOrigin) (Origin, error) {
	if xo.Time.Value == "" {
		return Origin{}, fmt.Errorf("origin %q has no time", xo.PublicID)
	}
	ts, err := parseTime(xo.Time.Value)
	if err != nil {
		return Origin{}, fmt.Errorf("origin %q: %w", xo.PublicID, err)
	}
	if xo.Latitude.Value == nil || xo.Longitude.Value == nil {
		return Origin{}, fmt.Errorf("origin %q has no coordinates", xo.PublicID)
	}

	o := Origin{
		PublicID:  xo.PublicID,
		Time:      ts,
		Latitude:  *xo.Latitude.Value,
		Longitude: *xo.Longitude.Value,
		DepthKm:   math.NaN(),
	}
	if xo.Depth.Value != nil {
		// Depth is carried in metres on the wire.
		o.DepthKm = *xo.Depth.Value / 1000.0
	}

	for _, xa := range xo.Arrivals {
		o.Arrivals = append(o.Arrivals, Arrival{
			PickID:       xa.PickID,
			Phase:        xa.Phase,
			Azimuth:      xa.Azimuth,
			Distance:     xa.Distance,
			TimeResidual: xa.TimeResidual,
		})
	}
	return o, nil
}

func convertPick(xp xmlPick) (Pick, error) {
	if xp.Time.Value == "" {
		return Pick{}, fmt.Errorf("pick %q has no time", xp.PublicID)
	}
	ts, err := parseTime(xp.Time.Value)
	if err != nil {
		return Pick{}, fmt.Errorf("pick %q: %w", xp.PublicID, err)
	}

	return Pick{
		PublicID:  xp.PublicID,
		Time:      ts,
		Network:   xp.WaveformID.NetworkCode,
		Station:   xp.WaveformID.StationCode,
		Channel:   xp.WaveformID.ChannelCode,
		PhaseHint: xp.PhaseHint,
		SNR:       xp.SNR,
		Quality:   xp.Quality,
	}, nil
}
