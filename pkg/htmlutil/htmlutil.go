// Package htmlutil has goquery helpers for scraping server rendered pages.
package htmlutil

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// CleanText drops non-printable characters and collapses every run of
// whitespace into a single space.
func CleanText(s string) string {
	printable := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(printable), " ")
}

// OwnText returns the cleaned text nodes that are direct children of the
// selection. Text nested inside child elements is ignored, so
// `80 <small>/ 100</small>` yields only "80".
func OwnText(sel *goquery.Selection) []string {
	var out []string
	sel.Contents().Each(func(_ int, child *goquery.Selection) {
		if len(child.Nodes) == 0 || child.Nodes[0].Type != html.TextNode {
			return
		}
		text := CleanText(child.Nodes[0].Data)
		if text != "" {
			out = append(out, text)
		}
	})
	return out
}

type Anchor struct {
	Name string
	Url  *url.URL
}

// GetAnchors reads every element of `sel` as an anchor with its href resolved
// against `base`. Elements with an unparseable href are skipped.
func GetAnchors(base *url.URL, sel *goquery.Selection) []Anchor {
	anchors := []Anchor{}
	sel.Each(func(_ int, a *goquery.Selection) {
		link, err := url.Parse(a.AttrOr("href", ""))
		if err != nil {
			return
		}
		if base != nil {
			link = base.ResolveReference(link)
		}
		anchors = append(anchors, Anchor{
			Name: CleanText(a.Text()),
			Url:  link,
		})
	})
	return anchors
}
