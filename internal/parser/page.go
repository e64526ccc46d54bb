// Package parser extracts listing ids and result counts from search-result
// page markup. Malformed or empty markup degrades to zero values, never to an
// error: the orchestrator treats empty output as a termination signal.
package parser

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	totalCountSelector  = `span[data-testid="total-count"]`
	listingCardSelector = `div[data-cy="l-card"]`
)

var firstNumber = regexp.MustCompile(`\d+`)

// TotalCount returns the advertised total result count from the page header,
// or 0 when the element is missing or holds no number.
func TotalCount(markup []byte) int {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return 0
	}
	text := doc.Find(totalCountSelector).First().Text()
	match := firstNumber.FindString(strings.ReplaceAll(text, " ", ""))
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return n
}

// ListingIDs returns the ids of the listing cards on the page in document
// order. Duplicates are preserved; deduplication against prior state happens
// later against the store.
func ListingIDs(markup []byte) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil
	}
	var ids []string
	doc.Find(listingCardSelector).Each(func(_ int, sel *goquery.Selection) {
		if id, ok := sel.Attr("id"); ok && id != "" {
			ids = append(ids, id)
		}
	})
	return ids
}
