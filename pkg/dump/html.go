package dump

import "strings"

// htmlEscape mirrors the reference dumper's html_escape: the five characters
// HTML attribute/text context requires escaping, plus the three whitespace
// forms it spells out as numeric entities so a dumped snippet survives
// copy-paste out of a <pre> block unchanged.
func htmlEscape(text string) string {
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		switch c := text[i]; c {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#39;")
		case '\n':
			b.WriteString("&#10;")
		case '\r':
			b.WriteString("&#13;")
		case '\t':
			b.WriteString("&#9;")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// HTML wraps dotSource in a minimal standalone page: a <pre> block holding the
// escaped Dot source, per SPEC_FULL.md §6.1's "render a minimal HTML wrapper
// (<pre> of the Dot source) for the log/ directory". title names the dump in
// the page heading (e.g. the source file it was generated from).
func HTML(title, dotSource string) string {
	log.WithField("bytes", len(dotSource)).Debug("html wrap started")

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
	b.WriteString(htmlEscape(title))
	b.WriteString("</title></head><body>\n<h1>")
	b.WriteString(htmlEscape(title))
	b.WriteString("</h1>\n<pre>")
	b.WriteString(htmlEscape(dotSource))
	b.WriteString("</pre>\n</body></html>\n")

	log.Debug("html wrap finished")
	return b.String()
}
