package enrich

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// bioSelectors are tried in order; the first non-empty value wins.
var bioSelectors = []struct {
	selector string
	attr     string
}{
	{`[data-e2e="user-bio"]`, ""},
	{`meta[property="og:description"]`, "content"},
	{`meta[name="description"]`, "content"},
}

// ParseBio pulls the profile description out of a rendered or raw page.
func ParseBio(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	for _, s := range bioSelectors {
		sel := doc.Find(s.selector).First()
		if sel.Length() == 0 {
			continue
		}
		var text string
		if s.attr == "" {
			text = sel.Text()
		} else {
			text, _ = sel.Attr(s.attr)
		}
		if text = strings.TrimSpace(text); text != "" {
			return text, nil
		}
	}
	return "", nil
}
