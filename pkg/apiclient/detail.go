package apiclient

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const maxDetailLen = 256

// failureDetail summarizes a non-JSON error body: the <title> of an HTML page,
// otherwise a trimmed excerpt.
func failureDetail(raw []byte, parseErr error) string {
	if parseErr == nil {
		return ""
	}
	body := bytes.TrimSpace(raw)
	if len(body) == 0 {
		return ""
	}
	if looksLikeHTML(body) {
		if title := htmlTitle(body); title != "" {
			return truncate(title)
		}
	}
	return truncate(strings.Join(strings.Fields(string(body)), " "))
}

func looksLikeHTML(body []byte) bool {
	head := body
	if len(head) > 512 {
		head = head[:512]
	}
	lower := bytes.ToLower(head)
	return bytes.HasPrefix(lower, []byte("<!doctype html")) ||
		bytes.Contains(lower, []byte("<html")) ||
		bytes.Contains(lower, []byte("<title"))
}

func htmlTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func truncate(s string) string {
	if len(s) <= maxDetailLen {
		return s
	}
	cut := maxDetailLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
