// Package segment turns a raw award document into ordered, queryable text segments.
package segment

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/awards-cli/internal/model"
)

// Kind classifies a segment by the markup it came from.
type Kind string

const (
	KindHeading Kind = "heading"
	KindText    Kind = "text"
	KindRow     Kind = "row"
)

// Segment is one line-level unit of a document.
type Segment struct {
	Kind  Kind     `json:"kind"`
	Text  string   `json:"text"`
	Cells []string `json:"cells,omitempty"`
}

// Document is a segmented raw document.
type Document struct {
	ID       string    `json:"id"`
	Segments []Segment `json:"segments"`
	Images   []string  `json:"images,omitempty"`
}

// maxControlRatio is the share of control characters above which a body is
// treated as binary.
const maxControlRatio = 0.05

var (
	spaceRe     = regexp.MustCompile(`\s+`)
	metaCharset = regexp.MustCompile(`(?i)<meta[^>]+charset\s*=\s*["']?([a-z0-9_\-]+)`)
)

// Parse segments body. charset is an optional declared encoding (e.g. from a
// Content-Type header); a <meta charset> in the body is used when it is empty.
func Parse(id string, body []byte, charset string) (*Document, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &model.ParseError{DocumentID: id, Reason: "empty document"}
	}
	if looksBinary(body) {
		return nil, &model.ParseError{DocumentID: id, Reason: "binary or corrupt content"}
	}

	text, err := decode(body, charset)
	if err != nil {
		return nil, &model.ParseError{DocumentID: id, Reason: err.Error()}
	}

	doc := &Document{ID: id}
	if isHTML(text) {
		if err := parseHTML(doc, text); err != nil {
			return nil, &model.ParseError{DocumentID: id, Reason: err.Error()}
		}
	} else {
		parseText(doc, text)
	}

	if len(doc.Segments) == 0 {
		return nil, &model.ParseError{DocumentID: id, Reason: "no text segments"}
	}
	return doc, nil
}

func looksBinary(body []byte) bool {
	if bytes.IndexByte(body, 0) >= 0 {
		return true
	}
	sample := body
	if len(sample) > 4096 {
		sample = sample[:4096]
	}
	control := 0
	for _, b := range sample {
		if b < 0x20 && b != '\n' && b != '\r' && b != '\t' && b != '\f' {
			control++
		}
	}
	return float64(control)/float64(len(sample)) > maxControlRatio
}

func decode(body []byte, charset string) (string, error) {
	if charset == "" {
		if m := metaCharset.FindSubmatch(body); m != nil {
			charset = string(m[1])
		}
	}
	charset = strings.ToLower(strings.TrimSpace(charset))

	if charset == "" || charset == "utf-8" || charset == "utf8" {
		if utf8.Valid(body) {
			return string(body), nil
		}
		// Undeclared legacy pages are overwhelmingly windows-1252.
		charset = "windows-1252"
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", eris.Wrapf(err, "segment: unsupported charset %q", charset)
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", eris.Wrapf(err, "segment: decode %s", charset)
	}
	return string(out), nil
}

func isHTML(text string) bool {
	trimmed := strings.TrimLeftFunc(text, unicode.IsSpace)
	return strings.HasPrefix(trimmed, "<")
}

func parseText(doc *Document, text string) {
	for _, line := range strings.Split(text, "\n") {
		if s := clean(line); s != "" {
			doc.Segments = append(doc.Segments, Segment{Kind: KindText, Text: s})
		}
	}
}

func parseHTML(doc *Document, text string) error {
	gq, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return eris.Wrap(err, "segment: parse html")
	}
	gq.Find("script, style, noscript, head").Remove()
	gq.Find("br").ReplaceWithHtml("\n")

	gq.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && strings.TrimSpace(src) != "" {
			doc.Images = append(doc.Images, strings.TrimSpace(src))
		}
	})

	root := gq.Find("body")
	if root.Length() == 0 {
		root = gq.Selection
	}
	w := walker{doc: doc}
	w.walk(root)
	w.flush()
	return nil
}

var (
	headingTags = map[string]bool{"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true}
	blockTags   = map[string]bool{
		"p": true, "div": true, "li": true, "dd": true, "dt": true, "section": true,
		"article": true, "ul": true, "ol": true, "dl": true, "blockquote": true,
		"table": true, "tbody": true, "thead": true, "tfoot": true, "center": true,
		"header": true, "footer": true, "main": true, "form": true, "pre": true,
		"tr": true, "hr": true, "body": true, "html": true,
	}
)

// walker emits segments in document order. Inline text accumulates until the
// next block boundary.
type walker struct {
	doc     *Document
	pending strings.Builder
}

func (w *walker) walk(sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, child *goquery.Selection) {
		node := child.Get(0)
		switch node.Type {
		case html.TextNode:
			w.pending.WriteString(node.Data)
			return
		case html.ElementNode:
		default:
			return
		}

		tag := goquery.NodeName(child)
		switch {
		case headingTags[tag]:
			w.flush()
			if s := clean(child.Text()); s != "" {
				w.doc.Segments = append(w.doc.Segments, Segment{Kind: KindHeading, Text: s})
			}
		case tag == "tr":
			w.flush()
			w.row(child)
		case blockTags[tag]:
			w.flush()
			w.walk(child)
			w.flush()
		case tag == "img":
		default:
			w.walk(child)
		}
	})
}

func (w *walker) row(tr *goquery.Selection) {
	var cells []string
	tr.Find("td, th").Each(func(_ int, c *goquery.Selection) {
		cells = append(cells, clean(c.Text()))
	})
	joined := clean(strings.Join(cells, " "))
	if joined == "" {
		return
	}
	w.doc.Segments = append(w.doc.Segments, Segment{Kind: KindRow, Text: joined, Cells: cells})
}

// flush emits the accumulated inline text, one segment per line.
func (w *walker) flush() {
	if w.pending.Len() == 0 {
		return
	}
	text := w.pending.String()
	w.pending.Reset()
	for _, line := range strings.Split(text, "\n") {
		if s := clean(line); s != "" {
			w.doc.Segments = append(w.doc.Segments, Segment{Kind: KindText, Text: s})
		}
	}
}

func clean(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
