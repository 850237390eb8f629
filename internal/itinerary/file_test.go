// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package itinerary

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/fare-scout/pkg/types"
)

const sample = `itineraries:
  - id: slc-den-aug
    origin: slc
    destination: den
    outbound_date: "2024-08-04"
    return_date: "2024-08-05"
    outbound_time: 1:30 PM
    return_time: 6:25 PM
    flight_numbers: [dl1623, DL2663]
    airline: dl
    filter_airline: true
    description: Summer trip
    recheck_hours: 12
  - origin: JFK
    destination: LAX
    outbound_date: "2024-09-10"
    enabled: false
`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "itineraries.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	f, err := Load(writeFile(t, sample))
	require.NoError(t, err)
	require.Len(t, f.Itineraries, 2)

	first := f.Itineraries[0]
	assert.Equal(t, "SLC", first.Origin)
	assert.Equal(t, "DL", first.Airline)
	assert.Equal(t, []string{"DL1623", "DL2663"}, first.FlightNumbers)
	assert.Equal(t, "1:30 PM", first.OutboundTime)
	assert.True(t, first.FilterAirline)
	assert.Equal(t, "Summer trip", first.Description)
	assert.Equal(t, 12*time.Hour, first.RecheckInterval(6*time.Hour))
	assert.True(t, first.Active())

	second := f.Itineraries[1]
	assert.False(t, second.Active())
	assert.Equal(t, 6*time.Hour, second.RecheckInterval(6*time.Hour))
	assert.Equal(t, "JFK-LAX-2024-09-10", second.Key())

	active := f.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "slc-den-aug", active[0].Key())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty", "itineraries: []\n", "no itineraries"},
		{"bad yaml", "itineraries: [\n", "parsing"},
		{
			name: "invalid itinerary",
			body: "itineraries:\n  - origin: SLC\n    destination: SLC\n    outbound_date: \"2024-08-04\"\n",
			want: "itinerary 1",
		},
		{
			name: "duplicate key",
			body: "itineraries:\n" +
				"  - {origin: SLC, destination: DEN, outbound_date: \"2024-08-04\"}\n" +
				"  - {origin: slc, destination: den, outbound_date: \"2024-08-04\"}\n",
			want: "share key",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAddAndRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "itineraries.yaml")
	q := types.ItineraryQuery{
		Origin:       "SLC",
		Destination:  "DEN",
		OutboundDate: "2024-08-04",
		OutboundTime: "1:30 PM",
		Airline:      "DL",
	}

	require.NoError(t, Add(path, q, "first"))
	require.NoError(t, Add(path, q, "replaced"))

	q2 := q
	q2.OutboundDate = "2024-08-11"
	require.NoError(t, Add(path, q2, ""))

	f, err := Load(path)
	require.NoError(t, err)
	require.Len(t, f.Itineraries, 2)
	assert.Equal(t, "replaced", f.Itineraries[0].Description)
	assert.Equal(t, "2024-08-11", f.Itineraries[1].OutboundDate)
	assert.False(t, f.Updated.IsZero())

	bad := q
	bad.Origin = "SALT"
	assert.Error(t, Add(path, bad, ""))
}
