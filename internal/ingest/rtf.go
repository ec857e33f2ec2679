// Package ingest - rtf.go strips RTF control words down to plain text.
package ingest

import (
	"strconv"
	"strings"
)

// Destinations whose content is never body text.
var rtfSkipDestinations = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true,
	"pict": true, "header": true, "footer": true, "listtable": true,
	"listoverridetable": true, "rsidtbl": true, "generator": true, "xmlnstbl": true,
}

// stripRTF removes groups, control words and hex escapes, keeping paragraph
// and tab breaks.
func stripRTF(src string) string {
	type group struct{ skip bool }
	var (
		out   strings.Builder
		stack []group
		skip  bool
	)

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '{':
			stack = append(stack, group{skip: skip})
		case '}':
			if n := len(stack); n > 0 {
				skip = stack[n-1].skip
				stack = stack[:n-1]
			}
		case '\\':
			if i+1 >= len(src) {
				continue
			}
			next := src[i+1]
			switch {
			case next == '\\' || next == '{' || next == '}':
				if !skip {
					out.WriteByte(next)
				}
				i++
			case next == '*':
				skip = true
				i++
			case next == '\'':
				if i+3 < len(src) {
					if v, err := strconv.ParseUint(src[i+2:i+4], 16, 8); err == nil && !skip {
						out.WriteRune(rune(v))
					}
				}
				i += 3
			case next == '~':
				if !skip {
					out.WriteByte(' ')
				}
				i++
			case isASCIILetter(next):
				j := i + 1
				for j < len(src) && isASCIILetter(src[j]) {
					j++
				}
				word := src[i+1 : j]
				if j < len(src) && (src[j] == '-' || isDigit(src[j])) {
					j++
					for j < len(src) && isDigit(src[j]) {
						j++
					}
				}
				if j < len(src) && src[j] == ' ' {
					j++
				}
				i = j - 1

				if rtfSkipDestinations[word] {
					skip = true
					continue
				}
				if skip {
					continue
				}
				switch word {
				case "par", "line", "sect", "page":
					out.WriteByte('\n')
				case "tab":
					out.WriteByte('\t')
				}
			default:
				i++
			}
		case '\r', '\n':
		default:
			if !skip {
				out.WriteByte(c)
			}
		}
	}
	return strings.TrimSpace(out.String())
}

func isASCIILetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
