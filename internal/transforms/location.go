package transforms

import (
	"fmt"
	"math"
	"strconv"

	"github.com/golang/geo/s2"

	"github.com/inferloop/kanon/internal/dataset"
	"github.com/inferloop/kanon/pkg/constants"
	"github.com/inferloop/kanon/pkg/errors"
)

// Haversine returns the great-circle distance in kilometres on a sphere of
// the mean Earth radius.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	angle := s2.LatLngFromDegrees(lat1, lon1).Distance(s2.LatLngFromDegrees(lat2, lon2))
	return angle.Radians() * constants.EarthRadiusKm
}

// DistanceBands is a strictly increasing list of band upper bounds in km.
type DistanceBands []float64

// Validate rejects empty, non-positive or non-increasing thresholds.
func (b DistanceBands) Validate() error {
	if len(b) == 0 {
		return errors.NewConfigurationError(errors.CodeInvalidThresholds, "at least one distance threshold is required")
	}
	for i, t := range b {
		if t <= 0 || math.IsNaN(t) || math.IsInf(t, 0) {
			return errors.NewConfigurationError(errors.CodeInvalidThresholds, fmt.Sprintf("distance threshold %v must be positive", t))
		}
		if i > 0 && t <= b[i-1] {
			return errors.NewConfigurationError(errors.CodeInvalidThresholds,
				fmt.Sprintf("distance thresholds must be strictly increasing: %v follows %v", t, b[i-1]))
		}
	}
	return nil
}

// Labels returns the band names, innermost first.
func (b DistanceBands) Labels() []string {
	labels := make([]string, 0, len(b)+1)
	for i, t := range b {
		if i == 0 {
			labels = append(labels, fmt.Sprintf("<=%s km", formatKm(t)))
			continue
		}
		labels = append(labels, fmt.Sprintf("%s-%s km", formatKm(b[i-1]), formatKm(t)))
	}
	return append(labels, fmt.Sprintf(">%s km", formatKm(b[len(b)-1])))
}

// Band names the band containing d. Each band includes its upper bound.
func (b DistanceBands) Band(d float64) string {
	labels := b.Labels()
	for i, t := range b {
		if d <= t {
			return labels[i]
		}
	}
	return labels[len(labels)-1]
}

func formatKm(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// LocationBand replaces a longitude/latitude pair by the distance band from a
// reference point. The raw coordinates and any precomputed distance column are
// dropped.
type LocationBand struct {
	LongitudeColumn string
	LatitudeColumn  string
	DistanceColumn  string
	OutputColumn    string
	RefLatitude     float64
	RefLongitude    float64
	Bands           DistanceBands
}

// NewLocationBand creates the transform with the default reference point.
func NewLocationBand(lonCol, latCol string, bands DistanceBands) *LocationBand {
	return &LocationBand{
		LongitudeColumn: lonCol,
		LatitudeColumn:  latCol,
		DistanceColumn:  constants.ColumnDistance,
		OutputColumn:    constants.ColumnDistanceBand,
		RefLatitude:     constants.ReferenceLatitude,
		RefLongitude:    constants.ReferenceLongitude,
		Bands:           bands,
	}
}

func (l *LocationBand) Name() string { return "location_band" }

func (l *LocationBand) Columns() []string {
	return []string{l.LongitudeColumn, l.LatitudeColumn}
}

func (l *LocationBand) Apply(ds *dataset.Dataset) (*dataset.Patch, Stats, error) {
	stats := Stats{Transform: l.Name(), Column: l.OutputColumn}

	if err := l.Bands.Validate(); err != nil {
		return nil, stats, err
	}
	lonCol, err := requireColumn(ds, l.LongitudeColumn)
	if err != nil {
		return nil, stats, err
	}
	latCol, err := requireColumn(ds, l.LatitudeColumn)
	if err != nil {
		return nil, stats, err
	}

	values := make([]dataset.Value, ds.Rows())
	for i := range values {
		lon, okLon := lonCol.Values[i].Float()
		lat, okLat := latCol.Values[i].Float()
		if !okLon || !okLat || math.Abs(lat) > 90 || math.Abs(lon) > 180 {
			values[i] = dataset.String(constants.UnknownValue)
			stats.Unknown++
			continue
		}
		d := Haversine(l.RefLatitude, l.RefLongitude, lat, lon)
		values[i] = dataset.String(l.Bands.Band(d))
	}
	stats.Processed = len(values)

	patch := dataset.NewPatch()
	patch.Replace[l.LongitudeColumn] = dataset.NewColumn(l.OutputColumn, values)
	patch.Drop = append(patch.Drop, l.LatitudeColumn)
	patch.Renames[l.LongitudeColumn] = l.OutputColumn
	patch.Renames[l.LatitudeColumn] = l.OutputColumn
	if l.DistanceColumn != "" && ds.HasColumn(l.DistanceColumn) {
		patch.Drop = append(patch.Drop, l.DistanceColumn)
		patch.Renames[l.DistanceColumn] = l.OutputColumn
	}
	return patch, stats, nil
}
