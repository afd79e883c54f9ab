package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// Extractor turns a rendered document into Fields. It holds no mutable state
// and is safe for concurrent use.
type Extractor struct {
	sel Selectors
}

// New creates an Extractor for the given selector profile.
func New(sel Selectors) *Extractor {
	return &Extractor{sel: sel}
}

// Default creates an Extractor with DefaultSelectors.
func Default() *Extractor {
	return New(DefaultSelectors())
}

// Extract emits address fields then official fields, each group in document
// order. Absent sub-elements produce no field. A nil document or one without
// matching groups yields an empty result.
func (e *Extractor) Extract(doc *goquery.Document) Fields {
	if doc == nil || doc.Selection == nil {
		return nil
	}

	var out Fields
	doc.Find(e.sel.Addresses.Group).Each(func(i int, block *goquery.Selection) {
		out = append(out, e.addressFields(i+1, block)...)
	})
	doc.Find(e.sel.Officials.Group).Each(func(i int, block *goquery.Selection) {
		out = append(out, e.officialFields(i+1, block)...)
	})
	return out
}

// ExtractHTML parses raw HTML and extracts from it. Unparseable input yields
// an empty result.
func (e *Extractor) ExtractHTML(raw string) Fields {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil
	}
	return e.Extract(doc)
}

func (e *Extractor) addressFields(idx int, block *goquery.Selection) Fields {
	s := e.sel.Addresses
	var fs Fields
	emit := func(attr Attr, v string) {
		fs = append(fs, Field{Group: GroupAddress, Index: idx, Attr: attr, Value: v})
	}

	if addr := block.Find(s.Physical).First(); addr.Length() > 0 {
		emit(AttrAddress, joinText(addr, " "))
	}
	if email := block.Find(s.Email).First(); email.Length() > 0 {
		emit(AttrEmail, joinText(email, ""))
	}
	if site, ok := firstWebLink(block.Find(s.Website)); ok {
		emit(AttrWebsite, site)
	}
	phone, fax := e.splitTel(block.Find(s.Tel))
	if phone != nil {
		emit(AttrPhone, joinText(phone, ""))
	}
	if fax != nil {
		emit(AttrFax, joinText(fax, ""))
	}
	return fs
}

func (e *Extractor) officialFields(idx int, block *goquery.Selection) Fields {
	s := e.sel.Officials
	var fs Fields
	emit := func(attr Attr, v string) {
		fs = append(fs, Field{Group: GroupOfficial, Index: idx, Attr: attr, Value: v})
	}

	if title := block.Find(s.Title).First(); title.Length() > 0 {
		emit(AttrTitle, joinText(title, ""))
	}
	if name := block.Find(s.Name).First(); name.Length() > 0 {
		emit(AttrName, joinText(name, ""))
	}
	phone, fax := e.splitTel(block.Find(s.Tel))
	if phone != nil {
		emit(AttrPhone, joinText(phone, ""))
	}
	if fax != nil {
		emit(AttrFax, joinText(fax, ""))
	}
	if email := block.Find(s.Email).First(); email.Length() > 0 {
		emit(AttrEmail, joinText(email, ""))
	}
	return fs
}

// splitTel returns the first non-fax and the first fax tel: link, in document
// order. Either may be nil.
func (e *Extractor) splitTel(links *goquery.Selection) (phone, fax *goquery.Selection) {
	marker := strings.ToLower(e.sel.FaxMarker)
	links.EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if strings.Contains(strings.ToLower(href), marker) {
			if fax == nil {
				fax = a
			}
		} else if phone == nil {
			phone = a
		}
		return phone == nil || fax == nil
	})
	return phone, fax
}

// firstWebLink returns the href of the first link with an http(s) target.
func firstWebLink(links *goquery.Selection) (string, bool) {
	var href string
	found := false
	links.EachWithBreak(func(_ int, a *goquery.Selection) bool {
		h, ok := a.Attr("href")
		h = strings.TrimSpace(h)
		lower := strings.ToLower(h)
		if ok && (strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")) {
			href, found = h, true
			return false
		}
		return true
	})
	return href, found
}

// joinText collects the text nodes under sel, trims each, drops empty ones and
// joins the rest with sep. Internal whitespace runs collapse to one space and
// the result is NFC-normalized.
func joinText(sel *goquery.Selection, sep string) string {
	var parts []string
	for _, n := range sel.Nodes {
		collectText(n, &parts)
	}
	return norm.NFC.String(strings.Join(parts, sep))
}

func collectText(n *html.Node, parts *[]string) {
	if n == nil {
		return
	}
	if n.Type == html.TextNode {
		if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
