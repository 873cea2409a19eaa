// Package gbfs provides the station_information and station_status feed
// types of a GBFS bike-share network, a strict parser for them, and a client
// that fetches them over HTTP.
package gbfs

import "time"

// Feed names, used in errors and logs.
const (
	FeedStationInformation = "station_information"
	FeedStationStatus      = "station_status"
)

// Header holds the envelope fields shared by every GBFS document.
type Header struct {
	// LastUpdated is the POSIX time the feed was last refreshed.
	LastUpdated int64 `json:"last_updated"`

	// TTL is the number of seconds the snapshot is considered valid.
	TTL int64 `json:"ttl"`

	// Version is the GBFS schema version of the document.
	Version string `json:"version"`
}

// UpdatedAt returns LastUpdated as a time.Time.
func (h Header) UpdatedAt() time.Time {
	return time.Unix(h.LastUpdated, 0)
}

// Expired reports whether the snapshot has outlived its TTL at now.
func (h Header) Expired(now time.Time) bool {
	return now.After(h.UpdatedAt().Add(time.Duration(h.TTL) * time.Second))
}

// StationInformationFeed is the station_information.json document.
type StationInformationFeed struct {
	Header
	Data StationInformationData `json:"data"`
}

// StationInformationData wraps the station list of station_information.json.
type StationInformationData struct {
	Stations []StationInformation `json:"stations"`
}

// StationInformation is the static metadata of one station.
type StationInformation struct {
	StationID        string      `json:"station_id"`
	Name             string      `json:"name"`
	Address          string      `json:"address"`
	CrossStreet      string      `json:"cross_street"`
	Lat              float64     `json:"lat"`
	Lon              float64     `json:"lon"`
	IsVirtualStation bool        `json:"is_virtual_station"`
	Capacity         int64       `json:"capacity"`
	StationArea      StationArea `json:"station_area"`
	RentalURIs       RentalURIs  `json:"rental_uris"`
}

// StationArea is a GeoJSON MultiPolygon. Coordinates are polygons of rings
// of [lon, lat] pairs and are carried through untouched.
type StationArea struct {
	Type        string          `json:"type"`
	Coordinates [][][][]float64 `json:"coordinates"`
}

// RentalURIs are the deep links into the operator's mobile apps.
type RentalURIs struct {
	Android string `json:"android"`
	IOS     string `json:"ios"`
}

// StationStatusFeed is the station_status.json document.
type StationStatusFeed struct {
	Header
	Data StationStatusData `json:"data"`
}

// StationStatusData wraps the station list of station_status.json.
type StationStatusData struct {
	Stations []StationStatus `json:"stations"`
}

// StationStatus is the live state of one station.
type StationStatus struct {
	StationID             string                    `json:"station_id"`
	IsInstalled           bool                      `json:"is_installed"`
	IsRenting             bool                      `json:"is_renting"`
	IsReturning           bool                      `json:"is_returning"`
	LastReported          int64                     `json:"last_reported"`
	NumVehiclesAvailable  int64                     `json:"num_vehicles_available"`
	NumBikesAvailable     int64                     `json:"num_bikes_available"`
	NumDocksAvailable     int64                     `json:"num_docks_available"`
	VehicleTypesAvailable []VehicleTypeAvailability `json:"vehicle_types_available"`
}

// VehicleTypeAvailability is the count of one vehicle type at a station.
type VehicleTypeAvailability struct {
	VehicleTypeID string `json:"vehicle_type_id"`
	Count         int64  `json:"count"`
}
