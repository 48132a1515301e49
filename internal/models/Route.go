package models

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// Route is the final routed line of a trip and the stops along it.
type Route struct {
	Base
	TripID uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"trip_id"`

	// Geometry holds the line as little-endian WKB.
	Geometry []byte `gorm:"type:bytea" json:"-"`

	Stops []Stop `gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"stops,omitempty"`
}

// SetLine stores ls as WKB.
func (r *Route) SetLine(ls *geom.LineString) error {
	if ls == nil {
		r.Geometry = nil
		return nil
	}
	b, err := wkb.Marshal(ls, binary.LittleEndian)
	if err != nil {
		return fmt.Errorf("encode route geometry: %w", err)
	}
	r.Geometry = b
	return nil
}

// Line decodes the stored geometry. A route without geometry yields nil.
func (r *Route) Line() (*geom.LineString, error) {
	if len(r.Geometry) == 0 {
		return nil, nil
	}
	g, err := wkb.Unmarshal(r.Geometry)
	if err != nil {
		return nil, fmt.Errorf("decode route geometry: %w", err)
	}
	ls, ok := g.(*geom.LineString)
	if !ok {
		return nil, fmt.Errorf("route geometry is %T, want LineString", g)
	}
	return ls, nil
}

// GeoJSON renders the stored geometry for API output.
func (r *Route) GeoJSON() (json.RawMessage, error) {
	ls, err := r.Line()
	if err != nil || ls == nil {
		return nil, err
	}
	b, err := gjson.Marshal(ls)
	if err != nil {
		return nil, err
	}
	return b, nil
}
