// Package render draws a page of artworks as a plain text table with a
// checkbox column.
package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/Sternrassler/artic-table/pkg/artwork"
)

// DefaultMaxWidth truncates long cells.
const DefaultMaxWidth = 40

// Checked and Unchecked are the checkbox glyphs.
const (
	Checked   = "[x]"
	Unchecked = "[ ]"
)

// Columns are the table headings after the checkbox column.
var Columns = []string{"ID", "TITLE", "PLACE OF ORIGIN", "ARTIST", "INSCRIPTIONS", "START", "END"}

// Table renders pages.
type Table struct {
	// MaxWidth limits every text cell, in runes. Zero disables truncation.
	MaxWidth int
}

// New returns a Table with DefaultMaxWidth.
func New() *Table {
	return &Table{MaxWidth: DefaultMaxWidth}
}

// Status is the line printed under the table.
type Status struct {
	CurrentPage int
	TotalPages  int
	Total       int
	Selected    int
	Pending     int
	Loading     bool
}

// String formats the status line.
func (s Status) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "page %d/%d", s.CurrentPage, s.TotalPages)
	if s.Total > 0 {
		fmt.Fprintf(&b, " (%d artworks)", s.Total)
	}
	fmt.Fprintf(&b, ", %d selected", s.Selected)
	if s.Pending > 0 {
		fmt.Fprintf(&b, ", %d pending", s.Pending)
	}
	if s.Loading {
		b.WriteString(", loading...")
	}
	return b.String()
}

// Page writes the records of page. isSelected drives the row checkboxes and
// allChecked the header checkbox. An empty page prints a placeholder row.
func (t *Table) Page(w io.Writer, page *artwork.Page, isSelected func(id int) bool, allChecked bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := Checkbox(allChecked) + "\t" + strings.Join(Columns, "\t")
	fmt.Fprintln(tw, header)

	if page == nil || len(page.Records) == 0 {
		fmt.Fprintln(tw, "\tNo artworks found.")
		return tw.Flush()
	}

	for _, r := range page.Records {
		cells := []string{
			Checkbox(isSelected(r.ID)),
			fmt.Sprint(r.ID),
			t.cell(r.Title),
			t.cell(r.PlaceOfOrigin),
			t.cell(r.ArtistDisplay),
			t.cell(r.Inscriptions),
			t.cell(r.DateStart),
			t.cell(r.DateEnd),
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// Checkbox returns the glyph for a checked state.
func Checkbox(checked bool) string {
	if checked {
		return Checked
	}
	return Unchecked
}

// cell flattens and truncates a value. Empty values print as "-".
func (t *Table) cell(v artwork.Text) string {
	s := strings.Join(strings.Fields(string(v)), " ")
	if s == "" {
		return "-"
	}
	if t.MaxWidth > 0 && utf8.RuneCountInString(s) > t.MaxWidth {
		runes := []rune(s)
		s = string(runes[:t.MaxWidth-1]) + "…"
	}
	return s
}
