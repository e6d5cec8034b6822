package clipboard

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Clean turns clipboard text that may be RTF or HTML into plain text with
// "\n" line endings and no control characters other than tab.
func Clean(text string) string {
	switch {
	case isRTF(text):
		text = fromRTF(text)
	case isHTML(text):
		text = fromHTML(text)
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' || r >= 32 && r != 127 {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func isRTF(text string) bool {
	return strings.HasPrefix(text, "{\\rtf")
}

func isHTML(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return strings.HasPrefix(t, "<") &&
		(strings.Contains(t, "<html") || strings.Contains(t, "<body") ||
			strings.Contains(t, "<div") || strings.Contains(t, "<p"))
}

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

func fromHTML(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch tag := string(name); {
			case tag == "script" || tag == "style":
				skip++
			case blockTags[tag] && b.Len() > 0:
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "script" || string(name) == "style" {
				skip = max(0, skip-1)
			}
		}
	}
}

// rtfDestinations are groups whose text is metadata, not content.
var rtfDestinations = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true,
	"pict": true, "header": true, "footer": true, "*": true,
}

func fromRTF(rtf string) string {
	var b strings.Builder
	b.Grow(len(rtf))
	// skipDepth is the group depth at which a destination began, or 0.
	depth, skipDepth := 0, 0
	for i := 0; i < len(rtf); i++ {
		c := rtf[i]
		switch c {
		case '{':
			depth++
			continue
		case '}':
			if depth == skipDepth {
				skipDepth = 0
			}
			depth--
			continue
		case '\r', '\n':
			continue
		case '\\':
		default:
			if skipDepth == 0 {
				b.WriteByte(c)
			}
			continue
		}

		if i+1 >= len(rtf) {
			break
		}
		next := rtf[i+1]
		switch {
		case next == '\'' && i+3 < len(rtf):
			if v, err := strconv.ParseUint(rtf[i+2:i+4], 16, 8); err == nil && skipDepth == 0 {
				b.WriteRune(rune(v))
			}
			i += 3
		case next == '\\' || next == '{' || next == '}':
			if skipDepth == 0 {
				b.WriteByte(next)
			}
			i++
		case next == '*':
			if skipDepth == 0 {
				skipDepth = depth
			}
			i++
		case isLetter(next):
			j := i + 1
			for j < len(rtf) && isLetter(rtf[j]) {
				j++
			}
			word := rtf[i+1 : j]
			for j < len(rtf) && (rtf[j] == '-' || rtf[j] >= '0' && rtf[j] <= '9') {
				j++
			}
			if j < len(rtf) && rtf[j] == ' ' {
				j++
			}
			i = j - 1
			if rtfDestinations[word] && skipDepth == 0 {
				skipDepth = depth
			}
			if skipDepth != 0 {
				continue
			}
			switch word {
			case "par", "line":
				b.WriteByte('\n')
			case "tab":
				b.WriteByte('\t')
			}
		default:
			i++
		}
	}
	return b.String()
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
