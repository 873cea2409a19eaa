package gbfs_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bysykkel/bysykkel/internal/gbfs"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return raw
}

func TestParseStationInformation(t *testing.T) {
	feed, err := gbfs.ParseStationInformation(readFixture(t, "station_information.json"))
	require.NoError(t, err)

	assert.Equal(t, int64(1729331400), feed.LastUpdated)
	assert.Equal(t, int64(10), feed.TTL)
	assert.Equal(t, "2.3", feed.Version)
	require.Len(t, feed.Data.Stations, 2)

	sentrum := feed.Data.Stations[0]
	assert.Equal(t, "1", sentrum.StationID)
	assert.Equal(t, "Sentrum", sentrum.Name)
	assert.Equal(t, "Stortingsgata 4", sentrum.Address)
	assert.Equal(t, "Rosenkrantz' gate", sentrum.CrossStreet)
	assert.Equal(t, 59.9139, sentrum.Lat)
	assert.Equal(t, 10.7383, sentrum.Lon)
	assert.False(t, sentrum.IsVirtualStation)
	assert.Equal(t, int64(24), sentrum.Capacity)
	assert.Equal(t, "MultiPolygon", sentrum.StationArea.Type)
	require.Len(t, sentrum.StationArea.Coordinates, 1)
	require.Len(t, sentrum.StationArea.Coordinates[0][0], 4)
	assert.Equal(t, []float64{10.7385, 59.9141}, sentrum.StationArea.Coordinates[0][0][2])
	assert.Equal(t, "oslobysykkel://stations/1", sentrum.RentalURIs.Android)
	assert.Equal(t, "oslobysykkel://stations/1", sentrum.RentalURIs.IOS)

	assert.Equal(t, "Grünerløkka", feed.Data.Stations[1].Name)
	assert.True(t, feed.Data.Stations[1].IsVirtualStation)
}

func TestParseStationStatus(t *testing.T) {
	feed, err := gbfs.ParseStationStatus(readFixture(t, "station_status.json"))
	require.NoError(t, err)

	require.Len(t, feed.Data.Stations, 2)

	status := feed.Data.Stations[1]
	assert.Equal(t, "1", status.StationID)
	assert.True(t, status.IsInstalled)
	assert.True(t, status.IsRenting)
	assert.False(t, status.IsReturning)
	assert.Equal(t, int64(1729331398), status.LastReported)
	assert.Equal(t, int64(5), status.NumVehiclesAvailable)
	assert.Equal(t, int64(5), status.NumBikesAvailable)
	assert.Equal(t, int64(10), status.NumDocksAvailable)
	assert.Equal(t, []gbfs.VehicleTypeAvailability{
		{VehicleTypeID: "YLS:VehicleType:CityBike", Count: 4},
		{VehicleTypeID: "YLS:VehicleType:EBike", Count: 1},
	}, status.VehicleTypesAvailable)

	assert.Empty(t, feed.Data.Stations[0].VehicleTypesAvailable)
}

func TestParse_MalformedJSON(t *testing.T) {
	feed, err := gbfs.ParseStationInformation([]byte("{not json"))
	require.Error(t, err)

	var decodeErr *gbfs.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, gbfs.FeedStationInformation, decodeErr.Feed)
	assert.Empty(t, feed.Data.Stations)
}

func TestParse_SchemaErrors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		missing     bool
		errContains string
	}{
		{
			name:        "wrong type for station_id",
			body:        `{"last_updated":1,"ttl":1,"version":"2.3","data":{"stations":[{"station_id":7}]}}`,
			errContains: "station_id",
		},
		{
			name:        "missing envelope field",
			body:        `{"last_updated":1,"version":"2.3","data":{"stations":[]}}`,
			missing:     true,
			errContains: `"ttl"`,
		},
		{
			name:        "missing data",
			body:        `{"last_updated":1,"ttl":1,"version":"2.3"}`,
			missing:     true,
			errContains: `"data"`,
		},
		{
			name: "missing nested station field",
			body: `{"last_updated":1,"ttl":1,"version":"2.3","data":{"stations":[
				{"station_id":"1","is_installed":true,"is_renting":true,"is_returning":true,
				 "last_reported":1,"num_vehicles_available":1,"num_bikes_available":1,
				 "vehicle_types_available":[]}]}}`,
			missing:     true,
			errContains: `"data.stations[0].num_docks_available"`,
		},
		{
			name: "missing vehicle type count",
			body: `{"last_updated":1,"ttl":1,"version":"2.3","data":{"stations":[
				{"station_id":"1","is_installed":true,"is_renting":true,"is_returning":true,
				 "last_reported":1,"num_vehicles_available":1,"num_bikes_available":1,
				 "num_docks_available":1,"vehicle_types_available":[{"vehicle_type_id":"x"}]}]}}`,
			missing:     true,
			errContains: `"data.stations[0].vehicle_types_available[0].count"`,
		},
		{
			name:        "null station_id",
			body:        `{"last_updated":1,"ttl":1,"version":"2.3","data":{"stations":[{"station_id":null}]}}`,
			missing:     true,
			errContains: `"data.stations[0].station_id"`,
		},
		{
			name:        "null data",
			body:        `{"last_updated":1,"ttl":1,"version":"2.3","data":null}`,
			missing:     true,
			errContains: `"data"`,
		},
		{
			name:        "top-level array",
			body:        `[]`,
			errContains: "cannot unmarshal array",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gbfs.ParseStationStatus([]byte(tt.body))
			require.Error(t, err)

			var decodeErr *gbfs.DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, gbfs.FeedStationStatus, decodeErr.Feed)
			assert.Equal(t, tt.missing, errors.Is(err, gbfs.ErrMissingField))
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestParse_IgnoresUnknownFields(t *testing.T) {
	body := `{
		"last_updated": 1, "ttl": 0, "version": "3.0", "extra": {"a": 1},
		"data": {"stations": [], "vehicle_types": []}
	}`

	feed, err := gbfs.ParseStationInformation([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "3.0", feed.Version)
	assert.Empty(t, feed.Data.Stations)
}

func TestParse_RoundTrip(t *testing.T) {
	original := gbfs.StationInformationFeed{
		Header: gbfs.Header{LastUpdated: 1729331400, TTL: 10, Version: "2.3"},
		Data: gbfs.StationInformationData{
			Stations: []gbfs.StationInformation{
				{
					StationID:        "42",
					Name:             "Grünerløkka",
					Address:          "Olaf Ryes plass",
					CrossStreet:      "Thorvald Meyers gate",
					Lat:              59.9226,
					Lon:              10.7578,
					IsVirtualStation: true,
					Capacity:         12,
					StationArea: gbfs.StationArea{
						Type: "MultiPolygon",
						Coordinates: [][][][]float64{
							{
								{{10.1, 59.1}, {10.2, 59.1}, {10.2, 59.2}, {10.1, 59.1}},
								{{10.15, 59.15}, {10.16, 59.15}, {10.15, 59.15}},
							},
							{
								{{11, 60}, {11.5, 60}, {11, 60}},
							},
						},
					},
					RentalURIs: gbfs.RentalURIs{Android: "app://a/42", IOS: "app://i/42"},
				},
			},
		},
	}

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	// The wire format uses the snake_case keys.
	assert.Contains(t, string(raw), `"station_id":"42"`)
	assert.Contains(t, string(raw), `"is_virtual_station":true`)
	assert.Contains(t, string(raw), `"rental_uris":{"android":"app://a/42","ios":"app://i/42"}`)

	parsed, err := gbfs.ParseStationInformation(raw)
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}

func TestParse_RoundTripNilSlices(t *testing.T) {
	header := gbfs.Header{LastUpdated: 1729331400, TTL: 10, Version: "2.3"}

	t.Run("empty information feed", func(t *testing.T) {
		original := gbfs.StationInformationFeed{Header: header}

		raw, err := json.Marshal(original)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"stations":null`)

		parsed, err := gbfs.ParseStationInformation(raw)
		require.NoError(t, err)
		assert.Equal(t, original, parsed)
	})

	t.Run("station with zero station area", func(t *testing.T) {
		original := gbfs.StationInformationFeed{
			Header: header,
			Data: gbfs.StationInformationData{
				Stations: []gbfs.StationInformation{{StationID: "1", Name: "Sentrum"}},
			},
		}

		raw, err := json.Marshal(original)
		require.NoError(t, err)

		parsed, err := gbfs.ParseStationInformation(raw)
		require.NoError(t, err)
		assert.Equal(t, original, parsed)
	})

	t.Run("status without vehicle types", func(t *testing.T) {
		original := gbfs.StationStatusFeed{
			Header: header,
			Data: gbfs.StationStatusData{
				Stations: []gbfs.StationStatus{{StationID: "1", NumBikesAvailable: 2, NumDocksAvailable: 3}},
			},
		}

		raw, err := json.Marshal(original)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"vehicle_types_available":null`)

		parsed, err := gbfs.ParseStationStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, original, parsed)
	})
}
