package crawler

import (
	"fmt"
	"strings"
)

// SearchParams captures everything that shapes a search-results URL.
type SearchParams struct {
	BaseURL   string
	Type      string
	Space     string
	HasPhotos bool
	FromOwner bool
	Rooms     []string
}

// BuildSearchURL composes the search-results URL for a city and page. The
// output is deterministic byte-for-byte for identical inputs: fragments are
// appended in a fixed order (photo filter, owner filter, room filters in
// configured order, page number when page > 1) and the query separator is
// always emitted, matching the origin's expected form.
func BuildSearchURL(p SearchParams, page int, city string) string {
	base := p.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	base = fmt.Sprintf("%s%s/%s/%s/", base, p.Type, p.Space, city)

	var params []string
	if p.HasPhotos {
		params = append(params, "search%5Bphotos%5D=1")
	}
	if p.FromOwner {
		params = append(params, "search%5Bfilter_enum_tipsobstvennosti%5D%5B0%5D=ot_hozyaina")
	}
	for i, room := range p.Rooms {
		params = append(params, fmt.Sprintf("search%%5Bfilter_enum_kolichestvokomnat%%5D%%5B%d%%5D=%s", i, room))
	}
	if page > 1 {
		params = append(params, fmt.Sprintf("page=%d", page))
	}

	return base + "?" + strings.Join(params, "&")
}
