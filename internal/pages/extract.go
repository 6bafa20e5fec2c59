package pages

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Link is an anchor extracted from a rendered page.
type Link struct {
	URL  string
	Text string
}

// Links returns all resolvable anchors on the current page. Relative hrefs
// are resolved against the current location; fragments and javascript:
// pseudo-links are skipped.
func (p *Page) Links() ([]Link, error) {
	html, err := p.OuterHTML("html")
	if err != nil {
		return nil, err
	}
	base, err := p.Location()
	if err != nil {
		return nil, err
	}
	return parseLinks(html, base)
}

// TableRows returns the cell text of every row in the table matching
// selector, header row included.
func (p *Page) TableRows(selector string) ([][]string, error) {
	html, err := p.OuterHTML(selector)
	if err != nil {
		return nil, err
	}
	return parseTable(html)
}

func parseLinks(html, baseURL string) ([]Link, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %s: %w", baseURL, err)
	}

	var links []Link
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		links = append(links, Link{
			URL:  base.ResolveReference(ref).String(),
			Text: strings.TrimSpace(s.Text()),
		})
	})
	return links, nil
}

func parseTable(html string) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var rows [][]string
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	return rows, nil
}
