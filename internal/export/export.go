// Package export writes finished trajectories in formats other tools read.
package export

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pablasso/flightpath/internal/api"
	"github.com/pablasso/flightpath/internal/engine"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
	FormatKML  Format = "kml"
)

// ParseFormat accepts json, yaml (or yml), csv and kml.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML, FormatCSV, FormatKML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want json, yaml, csv or kml)", s)
	}
}

// Extension is the file extension for the format, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// Document is everything one export contains.
type Document struct {
	BatchID   string    `json:"batch_id" yaml:"batch_id"`
	Generated time.Time `json:"generated" yaml:"generated"`
	Requested int       `json:"requested" yaml:"requested"`
	Paths     []Path    `json:"paths" yaml:"paths"`
}

// Path is one finished trajectory.
type Path struct {
	LaunchTime     time.Time   `json:"launch_time" yaml:"launch_time"`
	Launch         api.Point   `json:"launch" yaml:"launch"`
	Burst          api.Point   `json:"burst" yaml:"burst"`
	Landing        api.Point   `json:"landing" yaml:"landing"`
	FlightSeconds  float64     `json:"flight_seconds" yaml:"flight_seconds"`
	DistanceMeters float64     `json:"distance_meters" yaml:"distance_meters"`
	Stages         []api.Stage `json:"stages" yaml:"stages"`
}

// FromBatch collects the finished paths of b in launch order.
func FromBatch(b *engine.Batch, generated time.Time) Document {
	doc := Document{
		BatchID:   b.ID,
		Generated: generated.UTC(),
		Requested: len(b.Tasks()),
	}
	for _, p := range b.Paths() {
		doc.Paths = append(doc.Paths, Path{
			LaunchTime:     p.LaunchTime.UTC(),
			Launch:         p.Launch,
			Burst:          p.Burst,
			Landing:        p.Landing,
			FlightSeconds:  p.FlightDuration().Seconds(),
			DistanceMeters: p.Distance(),
			Stages:         p.Prediction.Prediction,
		})
	}
	return doc
}

// Write encodes doc to w.
func Write(w io.Writer, f Format, doc Document) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatCSV:
		return writeCSV(w, doc)
	case FormatKML:
		return writeKML(w, doc)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

func writeCSV(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"launch_time", "stage", "datetime", "latitude", "longitude", "altitude"}); err != nil {
		return err
	}
	for _, p := range doc.Paths {
		for _, stage := range p.Stages {
			for _, pt := range stage.Trajectory {
				record := []string{
					p.LaunchTime.Format(time.RFC3339),
					stage.Stage,
					pt.Datetime.UTC().Format(time.RFC3339),
					strconv.FormatFloat(pt.Latitude, 'f', 6, 64),
					strconv.FormatFloat(pt.Longitude, 'f', 6, 64),
					strconv.FormatFloat(pt.Altitude, 'f', 1, 64),
				}
				if err := cw.Write(record); err != nil {
					return err
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

type kmlRoot struct {
	XMLName  xml.Name    `xml:"kml"`
	NS       string      `xml:"xmlns,attr"`
	Document kmlDocument `xml:"Document"`
}

type kmlDocument struct {
	Name       string         `xml:"name"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlPlacemark struct {
	Name        string         `xml:"name"`
	Description string         `xml:"description,omitempty"`
	LineString  *kmlLineString `xml:"LineString,omitempty"`
	Point       *kmlPoint      `xml:"Point,omitempty"`
}

type kmlLineString struct {
	AltitudeMode string `xml:"altitudeMode"`
	Coordinates  string `xml:"coordinates"`
}

type kmlPoint struct {
	Coordinates string `xml:"coordinates"`
}

func kmlCoord(pt api.Point) string {
	ll := pt.LatLng()
	return fmt.Sprintf("%.6f,%.6f,%.1f", ll.Lng, ll.Lat, pt.Altitude)
}

func writeKML(w io.Writer, doc Document) error {
	root := kmlRoot{
		NS:       "http://www.opengis.net/kml/2.2",
		Document: kmlDocument{Name: "flightpath " + doc.BatchID},
	}
	for _, p := range doc.Paths {
		name := p.LaunchTime.Format("2006-01-02 15:04 UTC")
		var coords []string
		for _, stage := range p.Stages {
			for _, pt := range stage.Trajectory {
				coords = append(coords, kmlCoord(pt))
			}
		}
		root.Document.Placemarks = append(root.Document.Placemarks,
			kmlPlacemark{
				Name:        name,
				Description: fmt.Sprintf("Burst at %.0f m", p.Burst.Altitude),
				LineString:  &kmlLineString{AltitudeMode: "absolute", Coordinates: strings.Join(coords, " ")},
			},
			kmlPlacemark{
				Name:  name + " landing",
				Point: &kmlPoint{Coordinates: kmlCoord(p.Landing)},
			},
		)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("encode kml: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}
