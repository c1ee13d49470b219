package lsp

import "strings"

// Positions on the wire count UTF-16 code units; everything else in the
// server works on byte offsets.

func runeUnits(r rune) int {
	if r > 0xFFFF {
		return 2
	}
	return 1
}

// utf16Index returns the byte index of UTF-16 column char in line, clamped to
// len(line). A column inside a surrogate pair lands on the pair's start.
func utf16Index(line string, char int) int {
	units := 0
	for i, r := range line {
		n := runeUnits(r)
		if units+n > char {
			return i
		}
		units += n
	}
	return len(line)
}

// utf16Len counts the UTF-16 code units of s.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}
	return n
}

func applyChanges(text string, changes []textDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		start := offsetForPosition(text, change.Range.Start)
		end := max(offsetForPosition(text, change.Range.End), start)
		text = text[:start] + change.Text + text[end:]
	}
	return text
}

// offsetForPosition maps pos to a byte offset in text. Lines past the end
// clamp to len(text), columns past the end of a line clamp to its newline.
func offsetForPosition(text string, pos position) int {
	if pos.Line < 0 || pos.Character < 0 {
		return 0
	}
	start := 0
	for range pos.Line {
		nl := strings.IndexByte(text[start:], '\n')
		if nl < 0 {
			return len(text)
		}
		start += nl + 1
	}
	end := len(text)
	if nl := strings.IndexByte(text[start:], '\n'); nl >= 0 {
		end = start + nl
	}
	return start + utf16Index(text[start:end], pos.Character)
}

func positionForOffset(text string, off int) position {
	off = min(max(off, 0), len(text))
	line := strings.Count(text[:off], "\n")
	start := strings.LastIndexByte(text[:off], '\n') + 1
	return position{Line: line, Character: utf16Len(text[start:off])}
}
