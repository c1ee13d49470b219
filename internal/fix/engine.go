// Package fix applies the edits attached to diagnostics back to the files
// they were reported on.
package fix

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"dtolsp/internal/diag"
	"dtolsp/internal/source"
)

// ErrNoFixes is returned when no fixes were applied.
var ErrNoFixes = errors.New("no applicable fixes found")

// ApplyMode determines selection strategy for fixes.
type ApplyMode uint8

const (
	// ApplyModeOnce applies the first fix of the first diagnostic.
	ApplyModeOnce ApplyMode = iota
	// ApplyModeAll applies the first fix of every diagnostic.
	ApplyModeAll
	// ApplyModeID applies the single fix named by TargetID.
	ApplyModeID
)

type ApplyOptions struct {
	Mode     ApplyMode
	TargetID string
	// DryRun computes the changes without writing files.
	DryRun bool
}

// AppliedFix records a successfully applied fix.
type AppliedFix struct {
	ID          string
	Title       string
	Code        diag.Code
	Message     string
	PrimaryPath string
	EditCount   int
}

// SkippedFix captures a fix that was not applied and why.
type SkippedFix struct {
	ID     string
	Title  string
	Reason string
}

// FileChange summarises modifications performed on a file.
type FileChange struct {
	Path      string
	EditCount int
	Content   []byte
}

type ApplyResult struct {
	Applied     []AppliedFix
	Skipped     []SkippedFix
	FileChanges []FileChange
}

type candidate struct {
	diag  diag.Diagnostic
	fix   diag.Fix
	id    string
	first bool
	order int
}

// ID is the stable name of the idx-th fix of d: code, file name, 1-based
// line and column, fix index.
func ID(fs *source.FileSet, d diag.Diagnostic, idx int) string {
	name := "?"
	line, col := uint32(0), uint32(0)
	if f := fs.Get(d.Primary.File); f != nil {
		name = filepath.Base(f.Path)
		pos := f.Position(d.Primary.Start)
		line, col = pos.Line, pos.Col+1
	}
	return fmt.Sprintf("%s:%s:%d:%d#%d", d.Code.ID(), name, line, col, idx)
}

// Apply collects fixes from diagnostics, selects a subset according to opts
// and applies them to the files in fs.
func Apply(fs *source.FileSet, diagnostics []diag.Diagnostic, opts ApplyOptions) (*ApplyResult, error) {
	result := &ApplyResult{}
	if fs == nil {
		return result, errors.New("fix: FileSet is nil")
	}

	candidates, skips := gatherCandidates(fs, diagnostics)
	result.Skipped = append(result.Skipped, skips...)
	if len(candidates) == 0 {
		return result, ErrNoFixes
	}
	sortCandidates(candidates)

	selected, skips := selectCandidates(candidates, opts)
	result.Skipped = append(result.Skipped, skips...)
	if len(selected) == 0 {
		return result, ErrNoFixes
	}

	applied, skips, changes := applyCandidates(fs, selected)
	result.Applied = applied
	result.Skipped = append(result.Skipped, skips...)
	result.FileChanges = changes
	if len(applied) == 0 {
		return result, ErrNoFixes
	}
	if !opts.DryRun {
		for _, ch := range changes {
			if err := writeFile(ch.Path, ch.Content); err != nil {
				return result, err
			}
		}
	}
	return result, nil
}

func gatherCandidates(fs *source.FileSet, diagnostics []diag.Diagnostic) ([]candidate, []SkippedFix) {
	var (
		cands []candidate
		skips []SkippedFix
		order int
	)
	for _, d := range diagnostics {
		for idx, f := range d.Fixes {
			id := ID(fs, d, idx)
			if len(f.Edits) == 0 {
				skips = append(skips, SkippedFix{ID: id, Title: f.Title, Reason: "fix has no edits"})
				continue
			}
			cands = append(cands, candidate{diag: d, fix: f, id: id, first: idx == 0, order: order})
			order++
		}
	}
	return cands, skips
}

// sortCandidates orders candidates by file, span and insertion order.
func sortCandidates(candidates []candidate) {
	slices.SortStableFunc(candidates, func(a, b candidate) int {
		da, db := a.diag.Primary, b.diag.Primary
		switch {
		case da.File != db.File:
			return int(da.File) - int(db.File)
		case da.Start != db.Start:
			return int(da.Start) - int(db.Start)
		case da.End != db.End:
			return int(da.End) - int(db.End)
		}
		return a.order - b.order
	})
}

func selectCandidates(candidates []candidate, opts ApplyOptions) ([]candidate, []SkippedFix) {
	switch opts.Mode {
	case ApplyModeID:
		for _, cand := range candidates {
			if cand.id == opts.TargetID {
				return []candidate{cand}, nil
			}
		}
		return nil, []SkippedFix{{ID: opts.TargetID, Reason: "fix id not found"}}
	case ApplyModeAll:
		var selected []candidate
		for _, cand := range candidates {
			if cand.first {
				selected = append(selected, cand)
			}
		}
		return selected, nil
	case ApplyModeOnce:
		for _, cand := range candidates {
			if cand.first {
				return []candidate{cand}, nil
			}
		}
	}
	return nil, nil
}

func applyCandidates(fs *source.FileSet, selected []candidate) ([]AppliedFix, []SkippedFix, []FileChange) {
	buffers := make(map[source.FileID][]byte)
	appliedEdits := make(map[source.FileID][]diag.FixEdit)
	editCount := make(map[source.FileID]int)

	var (
		applied []AppliedFix
		skipped []SkippedFix
	)
	for _, cand := range selected {
		staged := make(map[source.FileID][]byte)
		stagedEdits := make(map[source.FileID][]diag.FixEdit)
		reason := ""
		total := 0

		for fileID, edits := range groupEditsByFile(cand.fix.Edits) {
			file := fs.Get(fileID)
			if file == nil {
				reason = "target file is unknown"
				break
			}
			if file.Flags&source.FileVirtual != 0 {
				reason = "target file is virtual"
				break
			}
			if conflictsWithExisting(appliedEdits[fileID], edits) {
				reason = "conflicts with previously applied edits in " + filepath.Base(file.Path)
				break
			}
			working := buffers[fileID]
			if working == nil {
				working = file.Content
			}
			working = slices.Clone(working)

			// right to left so earlier offsets stay valid
			slices.SortStableFunc(edits, func(a, b diag.FixEdit) int {
				if a.Span.Start == b.Span.Start {
					return int(b.Span.End) - int(a.Span.End)
				}
				return int(b.Span.Start) - int(a.Span.Start)
			})
			done := slices.Clone(appliedEdits[fileID])
			for _, e := range edits {
				start := int(e.Span.Start) + cumulativeDelta(done, int(e.Span.Start))
				end := int(e.Span.End) + cumulativeDelta(done, int(e.Span.End))
				if start < 0 || end < start || end > len(working) {
					reason = "edit span out of range"
					break
				}
				working = slices.Concat(working[:start], []byte(e.NewText), working[end:])
				done = insertEditSorted(done, e)
			}
			if reason != "" {
				break
			}
			staged[fileID] = working
			stagedEdits[fileID] = done
			total += len(edits)
		}

		if reason != "" {
			skipped = append(skipped, SkippedFix{ID: cand.id, Title: cand.fix.Title, Reason: reason})
			continue
		}
		for fileID, buf := range staged {
			buffers[fileID] = buf
			editCount[fileID] += len(stagedEdits[fileID]) - len(appliedEdits[fileID])
			appliedEdits[fileID] = stagedEdits[fileID]
		}
		path := ""
		if f := fs.Get(cand.diag.Primary.File); f != nil {
			path = f.Path
		}
		applied = append(applied, AppliedFix{
			ID:          cand.id,
			Title:       cand.fix.Title,
			Code:        cand.diag.Code,
			Message:     cand.diag.Message,
			PrimaryPath: path,
			EditCount:   total,
		})
	}

	changes := make([]FileChange, 0, len(buffers))
	for fileID, buf := range buffers {
		changes = append(changes, FileChange{
			Path:      fs.Get(fileID).Path,
			EditCount: editCount[fileID],
			Content:   buf,
		})
	}
	slices.SortFunc(changes, func(a, b FileChange) int {
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}
		return 0
	})
	return applied, skipped, changes
}

func writeFile(path string, content []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode()
	}
	if err := os.WriteFile(path, content, mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func conflictsWithExisting(existing, edits []diag.FixEdit) bool {
	for _, prev := range existing {
		for _, e := range edits {
			if spansConflict(prev, e) {
				return true
			}
		}
	}
	return false
}

// spansConflict reports whether two edits overlap. Spans are half-open; two
// insertions never conflict, an insertion conflicts with a replacement that
// strictly contains its position.
func spansConflict(a, b diag.FixEdit) bool {
	aStart, aEnd := a.Span.Start, a.Span.End
	bStart, bEnd := b.Span.Start, b.Span.End
	switch {
	case aStart == aEnd && bStart == bEnd:
		return false
	case aStart == aEnd:
		return bStart <= aStart && aStart < bEnd
	case bStart == bEnd:
		return aStart <= bStart && bStart < aEnd
	}
	return aStart < bEnd && bStart < aEnd
}

func groupEditsByFile(edits []diag.FixEdit) map[source.FileID][]diag.FixEdit {
	buckets := make(map[source.FileID][]diag.FixEdit)
	for _, e := range edits {
		buckets[e.Span.File] = append(buckets[e.Span.File], e)
	}
	return buckets
}

// cumulativeDelta is the length change at pos caused by the applied edits
// that end at or before it. edits are sorted by start.
func cumulativeDelta(edits []diag.FixEdit, pos int) int {
	delta := 0
	for _, e := range edits {
		start, end := int(e.Span.Start), int(e.Span.End)
		if start > pos {
			break
		}
		if end <= pos {
			delta += len(e.NewText) - (end - start)
		}
	}
	return delta
}

func insertEditSorted(edits []diag.FixEdit, e diag.FixEdit) []diag.FixEdit {
	i, _ := slices.BinarySearchFunc(edits, e, func(have, want diag.FixEdit) int {
		if have.Span.Start != want.Span.Start {
			return int(have.Span.Start) - int(want.Span.Start)
		}
		return int(have.Span.End) - int(want.Span.End)
	})
	return slices.Insert(edits, i, e)
}
