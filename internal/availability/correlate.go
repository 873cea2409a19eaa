// Package availability joins the station_information and station_status
// feeds of a network into per-station bike and dock availability for an
// operator-chosen set of stations.
package availability

import "github.com/bysykkel/bysykkel/internal/gbfs"

// AllowList is the set of station display names to report on. Names match
// byte for byte; no case folding or Unicode normalization is applied.
type AllowList map[string]struct{}

// NewAllowList builds an AllowList from names. Repeated names collapse.
func NewAllowList(names []string) AllowList {
	allow := make(AllowList, len(names))
	for _, name := range names {
		allow[name] = struct{}{}
	}
	return allow
}

// Contains reports whether name is on the list.
func (a AllowList) Contains(name string) bool {
	_, ok := a[name]
	return ok
}

// StationAvailability pairs a station's display name with its live status.
type StationAvailability struct {
	Name   string
	Status gbfs.StationStatus
}

// Correlate returns the status of every allow-listed station, in the order
// the stations appear in the information feed.
//
// Stations without a status entry are left out. If the status feed repeats a
// station_id, the first entry wins.
func Correlate(info gbfs.StationInformationFeed, status gbfs.StationStatusFeed, allow AllowList) []StationAvailability {
	byID := make(map[string]gbfs.StationStatus, len(status.Data.Stations))
	for _, s := range status.Data.Stations {
		if _, seen := byID[s.StationID]; !seen {
			byID[s.StationID] = s
		}
	}

	rows := make([]StationAvailability, 0, len(allow))
	for _, station := range info.Data.Stations {
		if !allow.Contains(station.Name) {
			continue
		}
		s, ok := byID[station.StationID]
		if !ok {
			continue
		}
		rows = append(rows, StationAvailability{Name: station.Name, Status: s})
	}

	return rows
}
