// Package htmlutil rewrites relative image URLs in HTML to absolute form.
package htmlutil

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/BerylCAtieno/web-accessibility-api/internal/utils"
)

// imgURLAttributes are rewritten in place on every <img>. href is not a real
// img attribute but shows up in malformed markup.
var imgURLAttributes = []string{"src", "href", "data-cfsrc"}

// CheckAbsoluteURL returns the normalized form of raw when it is an absolute
// http(s) URL with a host, and "" otherwise.
func CheckAbsoluteURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// FixHTMLContent resolves every relative src, href, data-cfsrc and srcset URL
// on <img> elements, and srcset on <picture><source>, against baseURL.
// Input without an <html> element is treated as a fragment and serialized back
// as a fragment.
func FixHTMLContent(baseURL, content string) (string, error) {
	if CheckAbsoluteURL(baseURL) == "" {
		return "", utils.NewBadRequestError(fmt.Sprintf("Invalid URL: %s", baseURL))
	}
	if strings.TrimSpace(content) == "" {
		return "", utils.NewBadRequestError("HTML content cannot be empty.")
	}

	base, _ := url.Parse(baseURL)

	if isFragment(content) {
		return fixFragment(base, content)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("error processing HTML content: %w", err)
	}
	rewrite(doc.Selection, base)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc.Nodes[0]); err != nil {
		return "", fmt.Errorf("error rendering HTML content: %w", err)
	}
	return buf.String(), nil
}

func isFragment(content string) bool {
	lower := strings.ToLower(content)
	return !strings.Contains(lower, "<html") && !strings.Contains(lower, "<!doctype")
}

func fixFragment(base *url.URL, content string) (string, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		return "", fmt.Errorf("error processing HTML content: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	rewrite(goquery.NewDocumentFromNode(body).Selection, base)

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("error rendering HTML content: %w", err)
		}
	}
	return buf.String(), nil
}

func rewrite(root *goquery.Selection, base *url.URL) {
	root.Find("img").Each(func(_ int, img *goquery.Selection) {
		for _, name := range imgURLAttributes {
			if v, ok := img.Attr(name); ok && strings.TrimSpace(v) != "" {
				img.SetAttr(name, resolve(base, v))
			}
		}
		if v, ok := img.Attr("srcset"); ok && strings.TrimSpace(v) != "" {
			img.SetAttr("srcset", FixSrcset(base, v))
		}
	})

	root.Find("picture > source[srcset]").Each(func(_ int, source *goquery.Selection) {
		if v, ok := source.Attr("srcset"); ok && strings.TrimSpace(v) != "" {
			source.SetAttr("srcset", FixSrcset(base, v))
		}
	})
}

// FixSrcset resolves the URL of each comma-separated srcset candidate against
// base. Width and density descriptors are kept verbatim; candidates are
// rejoined with ", ".
func FixSrcset(base *url.URL, srcset string) string {
	parts := strings.Split(srcset, ",")
	fixed := make([]string, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if i := strings.LastIndexFunc(part, unicode.IsSpace); i > 0 {
			urlPart := strings.TrimSpace(part[:i])
			descriptor := strings.TrimSpace(part[i:])
			fixed = append(fixed, resolve(base, urlPart)+" "+descriptor)
			continue
		}

		fixed = append(fixed, resolve(base, part))
	}

	return strings.Join(fixed, ", ")
}

// resolve returns raw unchanged when it is already absolute or unparsable.
func resolve(base *url.URL, raw string) string {
	trimmed := strings.TrimSpace(raw)
	ref, err := url.Parse(trimmed)
	if err != nil || ref.IsAbs() {
		return raw
	}
	return base.ResolveReference(ref).String()
}

// ResolveAgainst resolves raw against baseURL. It returns raw when raw is
// already absolute, and "" when raw is relative and baseURL is not absolute.
func ResolveAgainst(baseURL, raw string) string {
	raw = strings.TrimSpace(raw)
	ref, err := url.Parse(raw)
	if err != nil || raw == "" {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	if CheckAbsoluteURL(baseURL) == "" {
		return ""
	}
	base, _ := url.Parse(baseURL)
	return base.ResolveReference(ref).String()
}

// FirstSrcsetURL returns the URL part of the first srcset candidate.
func FirstSrcsetURL(srcset string) string {
	for _, part := range strings.Split(srcset, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if i := strings.IndexFunc(part, unicode.IsSpace); i > 0 {
			return part[:i]
		}
		return part
	}
	return ""
}
