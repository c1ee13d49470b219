package source

import (
	"crypto/sha256"
	"fmt"
	"math"
	"os"

	"fortio.org/safecast"
)

// FileSet owns the files of one analysis run. An LSP snapshot holds a FileSet
// with a single entry; the CLI check command loads many.
type FileSet struct {
	files []*File
	index map[string]FileID
}

// NewFileSet creates an empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{index: make(map[string]FileID)}
}

// Add stores normalized content, computes the line index and hash, and returns a fresh FileID.
// Adding the same path twice yields a new ID; GetLatest returns the newest.
func (fileSet *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	if len(content) > math.MaxUint32-1 {
		panic(fmt.Errorf("source %s: file too large (%d bytes)", path, len(content)))
	}
	n, err := safecast.Conv[uint32](len(fileSet.files))
	if err != nil {
		panic(fmt.Errorf("file count overflow: %w", err))
	}
	id := FileID(n)
	normalized := normalizePath(path)
	fileSet.files = append(fileSet.files, &File{
		ID:      id,
		Path:    normalized,
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	})
	fileSet.index[normalized] = id
	return id
}

// Load reads a file from disk, strips a BOM, folds CRLF, and calls Add.
func (fileSet *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	content, hadBOM := RemoveBOM(content)
	content, hadCRLF := NormalizeCRLF(content)
	var flags FileFlags
	if hadBOM {
		flags |= FileHadBOM
	}
	if hadCRLF {
		flags |= FileNormalizedCRLF
	}
	return fileSet.Add(path, content, flags), nil
}

// AddVirtual adds in-memory content (editor buffer, stdin, test).
func (fileSet *FileSet) AddVirtual(name string, content []byte) FileID {
	return fileSet.Add(name, content, FileVirtual)
}

// Get returns the file for id, or nil when id is unknown.
func (fileSet *FileSet) Get(id FileID) *File {
	if int(id) >= len(fileSet.files) {
		return nil
	}
	return fileSet.files[id]
}

// GetLatest returns the newest FileID registered for path.
func (fileSet *FileSet) GetLatest(path string) (FileID, bool) {
	id, ok := fileSet.index[normalizePath(path)]
	return id, ok
}

// Resolve converts a span into start and end positions.
func (fileSet *FileSet) Resolve(span Span) (start, end LineCol) {
	f := fileSet.Get(span.File)
	if f == nil {
		return LineCol{Line: 1}, LineCol{Line: 1}
	}
	return f.Position(span.Start), f.Position(span.End)
}

// Len reports the number of files in the set.
func (fileSet *FileSet) Len() int {
	return len(fileSet.files)
}

// Position maps a byte offset to a 1-based line and 0-based byte column.
// Offsets past the end clamp to the end of the file.
func (f *File) Position(off uint32) LineCol {
	if n := uint32(len(f.Content)); off > n { // #nosec G115 -- Add rejects oversized content
		off = n
	}
	return toLineCol(f.LineIdx, off)
}

// Offset is the inverse of Position. Columns past the end of the line clamp to the line end.
func (f *File) Offset(pos LineCol) uint32 {
	if pos.Line == 0 {
		return 0
	}
	start, end, ok := f.lineBounds(pos.Line)
	if !ok {
		return uint32(len(f.Content)) // #nosec G115 -- Add rejects oversized content
	}
	if start+pos.Col > end {
		return end
	}
	return start + pos.Col
}

// LineCount returns the number of lines; an empty file has one line.
func (f *File) LineCount() int {
	return len(f.LineIdx) + 1
}

// GetLine returns the text of a 1-based line without its trailing newline.
func (f *File) GetLine(line uint32) string {
	start, end, ok := f.lineBounds(line)
	if !ok {
		return ""
	}
	return string(f.Content[start:end])
}

func (f *File) lineBounds(line uint32) (start, end uint32, ok bool) {
	if line == 0 || int(line) > len(f.LineIdx)+1 {
		return 0, 0, false
	}
	if line > 1 {
		start = f.LineIdx[line-2] + 1
	}
	if int(line) <= len(f.LineIdx) {
		end = f.LineIdx[line-1]
	} else {
		end = uint32(len(f.Content)) // #nosec G115 -- Add rejects oversized content
	}
	return start, end, true
}

// Text returns the bytes covered by span as a string.
func (f *File) Text(span Span) string {
	n := uint32(len(f.Content)) // #nosec G115 -- Add rejects oversized content
	if span.Start > n || span.End > n || span.Start > span.End {
		return ""
	}
	return string(f.Content[span.Start:span.End])
}
