package lsp

import (
	"context"
	"errors"
	"time"

	"dtolsp/internal/diag"
	"dtolsp/internal/document"
	"dtolsp/internal/source"
)

const diagnosticSource = "jimmer-dto"

// scheduleDiagnostics analyzes edit seq of uri once the debounce delay passes
// without another edit.
func (s *Server) scheduleDiagnostics(uri string, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.timers[uri]; t != nil {
		t.Stop()
	}
	if cancel := s.cancels[uri]; cancel != nil {
		cancel()
		delete(s.cancels, uri)
	}
	s.timers[uri] = time.AfterFunc(s.opts.Debounce, func() {
		s.runDiagnostics(uri, seq)
	})
}

func (s *Server) runDiagnostics(uri string, seq uint64) {
	ctx, cancel := context.WithCancel(s.context())
	s.mu.Lock()
	if prev := s.cancels[uri]; prev != nil {
		prev()
	}
	s.cancels[uri] = cancel
	s.mu.Unlock()
	defer cancel()

	snap, err := s.docs.Analyze(ctx, uri, seq)
	if err != nil {
		if errors.Is(err, document.ErrStale) || errors.Is(err, document.ErrNotOpen) || errors.Is(err, context.Canceled) {
			s.log.Debug("analysis discarded", "uri", uri, "seq", seq, "reason", err)
			return
		}
		s.log.Warn("analysis failed", "uri", uri, "seq", seq, "error", err)
		return
	}
	if err := s.publish(snap); err != nil {
		s.log.Warn("failed to publish diagnostics", "uri", uri, "error", err)
	}
}

// reanalyzeAll schedules every open document again.
func (s *Server) reanalyzeAll() {
	for _, uri := range s.docs.URIs() {
		if d, ok := s.docs.Get(uri); ok {
			s.scheduleDiagnostics(uri, d.Seq())
		}
	}
}

func (s *Server) publish(snap *document.Snapshot) error {
	if _, ok := s.docs.Get(snap.URI); !ok {
		return nil
	}
	list := toLSPDiagnostics(snap.URI, snap.File, snap.Diagnostics(), s.opts.MaxDiagnostics)
	s.mu.Lock()
	if len(list) > 0 {
		s.published[snap.URI] = struct{}{}
	} else {
		delete(s.published, snap.URI)
	}
	s.mu.Unlock()
	version := snap.Version
	return s.sendPublish(snap.URI, &version, list)
}

func toLSPSeverity(sev diag.Severity) int {
	switch sev {
	case diag.SevError:
		return 1
	case diag.SevWarning:
		return 2
	default:
		return 3
	}
}

func toLSPDiagnostics(uri string, file *source.File, items []diag.Diagnostic, limit int) []lspDiagnostic {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]lspDiagnostic, 0, len(items))
	for _, d := range items {
		ld := lspDiagnostic{
			Range:    rangeForSpan(file, d.Primary),
			Severity: toLSPSeverity(d.Severity),
			Code:     d.Code.ID(),
			Source:   diagnosticSource,
			Message:  d.Message,
		}
		for _, n := range d.Notes {
			ld.RelatedInformation = append(ld.RelatedInformation, diagnosticRelatedInformation{
				Location: location{URI: uri, Range: rangeForSpan(file, n.Span)},
				Message:  n.Msg,
			})
		}
		out = append(out, ld)
	}
	return out
}
