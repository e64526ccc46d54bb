// Package listing defines the canonical listing record and the mapping from
// the origin's detail API payload into it.
package listing

import "time"

// Author classifies who placed the listing.
const (
	AuthorOwner  = "owner"
	AuthorAgency = "agency"
)

// Record is the canonical unit handed to the persistence sink. It is built
// once per successfully fetched listing and never mutated afterwards.
type Record struct {
	ID           string
	URL          string
	Title        string
	Description  string
	Price        float64
	City         string
	District     string
	Rooms        *int
	FloorCurrent string
	FloorTotal   string
	Area         int
	Condition    string
	Furniture    string
	Facilities   string
	Toilet       string
	Author       string
	Phone        string
	Photos       []string
	PostedAt     time.Time
	Duration     string
	Source       string
	AdType       string
	HouseType    string
}

// Tags are the provenance values stamped onto every record by the pipeline,
// independent of anything the origin site reports.
type Tags struct {
	Source    string
	AdType    string
	HouseType string
}
