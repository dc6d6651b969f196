// Package artwork defines the artwork records served by the Art Institute
// of Chicago API and the page envelope they arrive in.
package artwork

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Fields is the projection requested from the API. Only these fields are
// rendered, so asking for more wastes bandwidth.
var Fields = []string{
	"id",
	"title",
	"place_of_origin",
	"artist_display",
	"inscriptions",
	"date_start",
	"date_end",
}

// Record is one artwork row. ID identifies the row; every other field is
// display-only text.
type Record struct {
	ID            int  `json:"id" yaml:"id"`
	Title         Text `json:"title" yaml:"title"`
	PlaceOfOrigin Text `json:"place_of_origin" yaml:"place_of_origin"`
	ArtistDisplay Text `json:"artist_display" yaml:"artist_display"`
	Inscriptions  Text `json:"inscriptions" yaml:"inscriptions"`
	DateStart     Text `json:"date_start" yaml:"date_start"`
	DateEnd       Text `json:"date_end" yaml:"date_end"`
}

// RecordID returns the record's id.
func (r Record) RecordID() int {
	return r.ID
}

// Pagination is the API's pagination block.
type Pagination struct {
	Total       int    `json:"total" yaml:"total"`
	Limit       int    `json:"limit" yaml:"limit"`
	Offset      int    `json:"offset" yaml:"offset"`
	TotalPages  int    `json:"total_pages" yaml:"total_pages"`
	CurrentPage int    `json:"current_page" yaml:"current_page"`
	NextURL     string `json:"next_url,omitempty" yaml:"next_url,omitempty"`
}

// Page is one decoded page of records.
type Page struct {
	Pagination Pagination `json:"pagination" yaml:"pagination"`
	Records    []Record   `json:"data" yaml:"data"`
}

// IDs returns the record ids in display order.
func (p *Page) IDs() []int {
	ids := make([]int, len(p.Records))
	for i, r := range p.Records {
		ids[i] = r.ID
	}
	return ids
}

// Decode parses a page body. A page without a positive total_pages is
// treated as a single page.
func Decode(data []byte) (*Page, error) {
	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("decode artworks page: %w", err)
	}
	if page.Records == nil {
		return nil, fmt.Errorf("decode artworks page: missing data array")
	}
	if page.Pagination.TotalPages < 1 {
		page.Pagination.TotalPages = 1
	}
	return &page, nil
}

// Text is a display string that tolerates null and numeric JSON values.
// The API returns null for unknown fields and integers for years.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*t = Text(strconv.FormatBool(b))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("unsupported text value %s", data)
		}
		*t = Text(n.String())
	}
	return nil
}

// String returns the text.
func (t Text) String() string {
	return string(t)
}
