package listing

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrEmptyPayload reports that the detail payload carried no offer data.
var ErrEmptyPayload = errors.New("listing: empty offer payload")

// Origin attribute keys inside the detail payload's params list.
const (
	paramPrice      = "price"
	paramRooms      = "kolichestvokomnat"
	paramFloor      = "etazh"
	paramFloorTotal = "etazhnost_doma"
	paramArea       = "obshayaploshad"
	paramCondition  = "remont"
	paramOwnership  = "tipsobstvennosti"
	paramFurniture  = "meblirovaniye"
	paramFacilities = "tehnika"
	paramToilet     = "sanuzel"
)

// Origin label values driving the binary categorical mappings.
const (
	labelFromOwner   = "от хозяина"
	labelFurnished   = "Да"
	labelToiletJoint = "совместный"

	furnitureYes = "мебель"
	furnitureNo  = "без мебели"
	toiletJoint  = "совмещенный санузел"
	toiletSplit  = "раздельный санузел"

	durationLongTime = "long_time"

	photoSizeTemplate = ";s={width}x{height}"
	photoFormatSuffix = ".webp"
	districtSuffix    = " район"
)

var (
	markupTag   = regexp.MustCompile(`</?[^>]+(>|$)`)
	firstNumber = regexp.MustCompile(`\d+`)
)

type offerPayload struct {
	Data *offerData `json:"data"`
}

type offerData struct {
	ID          json.Number   `json:"id"`
	URL         string        `json:"url"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	LastRefresh string        `json:"last_refresh_time"`
	Params      []offerParam  `json:"params"`
	Photos      []offerPhoto  `json:"photos"`
	Location    offerLocation `json:"location"`
}

type offerParam struct {
	Key   string     `json:"key"`
	Value paramValue `json:"value"`
}

// paramValue keeps Value raw because the origin mixes numbers and strings in
// the same slot across attribute kinds.
type paramValue struct {
	Key   string          `json:"key"`
	Label string          `json:"label"`
	Value json.RawMessage `json:"value"`
}

type offerPhoto struct {
	Link string `json:"link"`
}

type offerLocation struct {
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	District *struct {
		Name string `json:"name"`
	} `json:"district"`
}

// MapOffer reshapes a raw detail payload into a Record. Each attribute lookup
// is independent and tolerant of absence: missing numerics become 0, missing
// categoricals take their fallback value. Only an absent or undecodable
// payload is an error.
func MapOffer(raw []byte, phone string, tags Tags) (*Record, error) {
	var payload offerPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("listing: decode offer payload: %w", err)
	}
	data := payload.Data
	if data == nil {
		return nil, ErrEmptyPayload
	}

	params := paramIndex(data.Params)

	rec := &Record{
		ID:           data.ID.String(),
		URL:          data.URL,
		Title:        data.Title,
		Description:  strings.TrimSpace(markupTag.ReplaceAllString(data.Description, "")),
		Price:        params.number(paramPrice),
		City:         data.Location.City.Name,
		Rooms:        params.firstInt(paramRooms),
		FloorCurrent: params.label(paramFloor),
		FloorTotal:   params.label(paramFloorTotal),
		Area:         params.roundedArea(paramArea),
		Condition:    params.label(paramCondition),
		Author:       AuthorAgency,
		Phone:        phone,
		Photos:       []string{},
		PostedAt:     dayOf(data.LastRefresh),
		Duration:     durationLongTime,
		Source:       tags.Source,
		AdType:       tags.AdType,
		HouseType:    tags.HouseType,
	}

	if data.Location.District != nil {
		rec.District = strings.TrimSuffix(data.Location.District.Name, districtSuffix)
	}
	if params.label(paramOwnership) == labelFromOwner {
		rec.Author = AuthorOwner
	}
	if params.label(paramFurniture) == labelFurnished {
		rec.Furniture = furnitureYes
	} else {
		rec.Furniture = furnitureNo
	}
	rec.Facilities = strings.ToLower(params.label(paramFacilities))
	if params.label(paramToilet) == labelToiletJoint {
		rec.Toilet = toiletJoint
	} else {
		rec.Toilet = toiletSplit
	}

	for _, photo := range data.Photos {
		rec.Photos = append(rec.Photos, strings.Replace(photo.Link, photoSizeTemplate, photoFormatSuffix, 1))
	}

	return rec, nil
}

type paramLookup map[string]paramValue

func paramIndex(params []offerParam) paramLookup {
	idx := make(paramLookup, len(params))
	for _, p := range params {
		idx[p.Key] = p.Value
	}
	return idx
}

func (l paramLookup) label(key string) string {
	return l[key].Label
}

// number reads the attribute's numeric value slot, tolerating both bare
// numbers and quoted numbers. Unresolvable values map to 0.
func (l paramLookup) number(key string) float64 {
	raw := l[key].Value
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return n
		}
	}
	return 0
}

// firstInt extracts the first integer from the attribute's free-text label.
func (l paramLookup) firstInt(key string) *int {
	match := firstNumber.FindString(l[key].Label)
	if match == "" {
		return nil
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}
	return &n
}

// roundedArea parses the attribute's value key as a float and rounds it to
// the nearest integer, defaulting to 0.
func (l paramLookup) roundedArea(key string) int {
	f, err := strconv.ParseFloat(l[key].Key, 64)
	if err != nil {
		return 0
	}
	return int(math.Round(f))
}

// dayOf parses the origin's last-refresh timestamp and truncates it to the
// day. Unparseable input yields the zero time, which the store maps to NULL.
func dayOf(raw string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
	}
	return time.Time{}
}
