package source

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"

	"attendance/internal"
	"attendance/internal/util"
)

// NewHTML reads an HTML export. Headings and table captions become one-cell
// rows, table rows become rows of their th/td texts, all in document order.
func NewHTML(r io.Reader) (RowSource, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	rows := []internal.RawRow{}
	doc.Find("h1, h2, h3, h4, caption, tr").Each(func(_ int, sel *goquery.Selection) {
		if goquery.NodeName(sel) != "tr" {
			rows = append(rows, internal.RawRow{util.NormalizeSpaces(sel.Text())})
			return
		}
		row := internal.RawRow{}
		sel.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			row = append(row, util.NormalizeSpaces(cell.Text()))
		})
		rows = append(rows, row)
	})

	return newSliceSource(rows), nil
}
