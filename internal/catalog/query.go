package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// TextSearchPath is the API path for text searches.
const TextSearchPath = "/apiv2/search/text/"

// Fields lists the sound fields requested in every search.
var Fields = []string{
	"id", "url", "name", "license", "tags", "pack", "description",
	"created", "duration", "download", "previews", "images", "username",
}

// Departments is a curated selection of the most used Freesound tags. A
// department narrows every search to one tag.
var Departments = []string{
	"ambience", "atmosphere",
	"bass", "beat", "birds",
	"city", "car",
	"door", "drum",
	"electronic",
	"female", "field-recording", "foley",
	"guitar",
	"hit", "horror",
	"loop",
	"machine", "music",
	"nature", "noise",
	"synth",
	"techno", "thunder", "traffic",
	"voice",
	"water", "weird", "wind",
}

// PageSizes maps the page size setting to a result count.
var PageSizes = [...]int{3, 15, 30, 45}

// PageSize returns the result count for setting idx, clamped to the table.
func PageSize(idx int) int {
	if idx < 0 {
		idx = 0
	}
	if idx >= len(PageSizes) {
		idx = len(PageSizes) - 1
	}
	return PageSizes[idx]
}

// Sort orders.
const (
	SortCreatedDesc   = "created_desc"
	SortDownloadsDesc = "downloads_desc"
)

// Location is a point on the earth in decimal degrees.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Query is one text search request.
type Query struct {
	Text       string
	Department string // tag filter, optional
	PageSize   int
	Sort       string // empty means relevance
	Filter     string // raw Solr filter, before the department tag is added
}

// NewestQuery searches by creation date, newest first.
func NewestQuery(text, department string, pageSize int) Query {
	return Query{Text: text, Department: department, PageSize: pageSize, Sort: SortCreatedDesc}
}

// MostDownloadedQuery searches by download count, highest first.
func MostDownloadedQuery(text, department string, pageSize int) Query {
	return Query{Text: text, Department: department, PageSize: pageSize, Sort: SortDownloadsDesc}
}

// NearbyQuery restricts results to sounds geotagged within radiusKm of loc.
func NearbyQuery(text, department string, pageSize int, loc Location, radiusKm float64) Query {
	return Query{
		Text:       text,
		Department: department,
		PageSize:   pageSize,
		Filter:     GeoFilter(loc, radiusKm),
	}
}

// GeoFilter builds the Solr geofilt clause for loc and radius.
func GeoFilter(loc Location, radiusKm float64) string {
	return fmt.Sprintf("{!geofilt sfield=geotag pt=%s,%s d=%s}",
		formatFloat(loc.Latitude), formatFloat(loc.Longitude), formatFloat(radiusKm))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FilterString returns the filter with the department tag appended.
func (q Query) FilterString() string {
	filter := q.Filter
	if q.Department != "" {
		filter += " tag:" + q.Department
	}
	return filter
}

// Values encodes q as API query parameters.
func (q Query) Values(token string) url.Values {
	v := url.Values{}
	v.Set("token", token)
	v.Set("fields", strings.Join(Fields, ","))
	v.Set("page_size", strconv.Itoa(q.PageSize))
	v.Set("query", q.Text)
	if f := q.FilterString(); f != "" {
		v.Set("filter", f)
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	return v
}
