package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eld_trip_planner/internal/geometry"
)

func TestTimeOfDayJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Start TimeOfDay `json:"start"`
		End   TimeOfDay `json:"end"`
	}{Start: 7*3600 + 9*60 + 5, End: EndOfDay})
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"07:09:05","end":"24:00:00"}`, string(b))

	var got TimeOfDay
	require.NoError(t, json.Unmarshal([]byte(`"15:20:00"`), &got))
	assert.Equal(t, TimeOfDay(15*3600+20*60), got)
	assert.Equal(t, "15:20", got.HHMM())

	assert.Error(t, json.Unmarshal([]byte(`"25:00:00"`), &got))
	assert.Error(t, json.Unmarshal([]byte(`"noon"`), &got))
}

func TestRouteGeometryRoundTrip(t *testing.T) {
	var r Route
	line := geometry.NewLine(geometry.Point{Lon: -87.6, Lat: 41.8}, geometry.Point{Lon: -86.1, Lat: 39.7})
	require.NoError(t, r.SetLine(line))
	require.NotEmpty(t, r.Geometry)

	back, err := r.Line()
	require.NoError(t, err)
	assert.Equal(t, geometry.Points(line), geometry.Points(back))

	gj, err := r.GeoJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"LineString","coordinates":[[-87.6,41.8],[-86.1,39.7]]}`, string(gj))

	var empty Route
	ls, err := empty.Line()
	assert.NoError(t, err)
	assert.Nil(t, ls)
}

func TestStopLabelsAndEnd(t *testing.T) {
	assert.Equal(t, "34-Hour Restart", StopMandatoryRest.Label())
	assert.Equal(t, "30-Minute Break", StopRestBreak.Label())
	assert.True(t, StopFuel.OnDuty())
	assert.False(t, StopRestBreak.OnDuty())

	at := time.Date(2025, 3, 1, 23, 30, 0, 0, time.UTC)
	s := Stop{StopType: StopFuel, Duration: 0.5, Timestamp: at}
	assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), s.End())
}
