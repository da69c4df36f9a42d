// Package catalog is a client for the Freesound text search API.
//
// It builds the three search flavours soundscope shows (newest, most
// downloaded, nearby), performs them with rate limiting and retry, and decodes
// each response into an ordered []Sound.
package catalog

import (
	"strconv"
	"time"
)

// Sound is a Freesound sound resource, limited to the fields in Fields.
type Sound struct {
	ID          int64             `json:"id"`
	URL         string            `json:"url"`
	Name        string            `json:"name"`
	License     string            `json:"license"`
	Tags        []string          `json:"tags"`
	Pack        string            `json:"pack"`
	Description string            `json:"description"`
	Created     string            `json:"created"`
	Duration    float64           `json:"duration"`
	Download    string            `json:"download"`
	Previews    map[string]string `json:"previews"`
	Images      map[string]string `json:"images"`
	Username    string            `json:"username"`
}

// URI identifies the sound in stored results.
func (s Sound) URI() string {
	return strconv.FormatInt(s.ID, 10)
}

// PreviewURL returns the low quality mp3 preview.
func (s Sound) PreviewURL() string {
	return s.Previews["preview-lq-mp3"]
}

// Waveform returns the large waveform image.
func (s Sound) Waveform() string {
	return s.Images["waveform_l"]
}

// CreatedAt parses Created. Freesound omits the zone; the zero time is
// returned when the value cannot be parsed.
func (s Sound) CreatedAt() time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s.Created); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Length returns Duration as a time.Duration.
func (s Sound) Length() time.Duration {
	return time.Duration(s.Duration * float64(time.Second))
}

// searchResponse is the paged envelope around results.
type searchResponse struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []Sound `json:"results"`
}
