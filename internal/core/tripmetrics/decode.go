package tripmetrics

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/samirrijal/ridemetrics/internal/core/domain"
)

// Fix is a decoded LocationRecord.
type Fix struct {
	Time  time.Time
	Coord domain.GeoCoordinate
}

type coordinatePayload struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// DecodeCoordinate decodes a {"lat": ..., "lng": ...} payload.
// Both keys must be present and the result must pass GeoCoordinate.Validate.
func DecodeCoordinate(raw string) (domain.GeoCoordinate, error) {
	var p coordinatePayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return domain.GeoCoordinate{}, err
	}
	if p.Lat == nil || p.Lng == nil {
		return domain.GeoCoordinate{}, errors.New("lat and lng are required")
	}
	c := domain.GeoCoordinate{Lat: *p.Lat, Lng: *p.Lng}
	if err := c.Validate(); err != nil {
		return domain.GeoCoordinate{}, err
	}
	return c, nil
}

// ParseTimestamp parses an absolute point in time. RFC 3339 is tried first;
// anything else goes through dateparse, with zone-less input read as UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("timestamp is empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	return dateparse.ParseIn(raw, time.UTC)
}

// Decode turns records into fixes, stopping at the first bad record.
func Decode(records []domain.LocationRecord) ([]Fix, error) {
	fixes := make([]Fix, 0, len(records))
	for i, r := range records {
		coord, err := DecodeCoordinate(r.Coordinates)
		if err != nil {
			return nil, &MalformedCoordinateError{Index: i, Err: err}
		}
		ts, err := ParseTimestamp(r.Timestamp)
		if err != nil {
			return nil, &MalformedTimestampError{Index: i, Err: err}
		}
		fixes = append(fixes, Fix{Time: ts, Coord: coord})
	}
	return fixes, nil
}
