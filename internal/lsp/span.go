package lsp

import (
	"sort"

	"fortio.org/safecast"

	"dtolsp/internal/source"
)

const maxUint32 = ^uint32(0)

func safeUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return maxUint32
	}
	return v
}

// lineBounds returns the byte range of 0-based line in file, without the
// newline. ok is false past the last line.
func lineBounds(file *source.File, line int) (start, end uint32, ok bool) {
	if line < 0 || line > len(file.LineIdx) {
		return 0, 0, false
	}
	if line > 0 {
		start = file.LineIdx[line-1] + 1
	}
	end = safeUint32(len(file.Content))
	if line < len(file.LineIdx) {
		end = file.LineIdx[line]
	}
	return start, max(start, end), true
}

func offsetForPositionInFile(file *source.File, pos position) uint32 {
	if file == nil || pos.Line < 0 || pos.Character < 0 {
		return 0
	}
	start, end, ok := lineBounds(file, pos.Line)
	if !ok {
		return safeUint32(len(file.Content))
	}
	return start + safeUint32(utf16Index(string(file.Content[start:end]), pos.Character))
}

func positionForOffsetInFile(file *source.File, offset uint32) position {
	if file == nil {
		return position{}
	}
	offset = min(offset, safeUint32(len(file.Content)))
	line := sort.Search(len(file.LineIdx), func(i int) bool { return file.LineIdx[i] >= offset })
	start, _, _ := lineBounds(file, line)
	start = min(start, offset)
	return position{Line: line, Character: utf16Len(string(file.Content[start:offset]))}
}

func rangeForSpan(file *source.File, span source.Span) lspRange {
	if file == nil {
		return lspRange{}
	}
	return lspRange{
		Start: positionForOffsetInFile(file, span.Start),
		End:   positionForOffsetInFile(file, span.End),
	}
}
