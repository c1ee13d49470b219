package lsp

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"dtolsp/internal/document"
)

const resolveTitle = "Resolve Dependencies"

func (s *Server) handleExecuteCommand(msg *rpcMessage) error {
	params, ok, err := decode[executeCommandParams](s, msg)
	if !ok {
		return err
	}
	if params.Command != ResolveCommand {
		return s.sendError(msg.ID, codeInvalidParams, "unknown command "+params.Command)
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		s.resolveDependencies(s.context())
	}()
	return s.sendResponse(msg.ID, nil)
}

// resolveDependencies drops every cached index and re-analyzes the open
// documents, reporting progress to the client. Past ResolveTimeout the user
// is told to resolve dependencies by hand.
func (s *Server) resolveDependencies(ctx context.Context) {
	token := uuid.New().String()
	if err := s.request("window/workDoneProgress/create", workDoneProgressCreateParams{Token: token}); err != nil {
		s.log.Warn("progress create failed", "error", err)
		return
	}
	_ = s.notify("$/progress", progressParams{Token: token, Value: workDoneProgressBegin{
		Kind:  "begin",
		Title: resolveTitle + " in progress",
	}})

	ctx, cancel := context.WithTimeout(ctx, s.opts.ResolveTimeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.reindex(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	end := resolveTitle + " done"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		end = resolveTitle + " timeout"
		_ = s.notify("window/showMessage", showMessageParams{
			Type:    messageError,
			Message: resolveTitle + " timeout, please resolve dependencies manually",
		})
	case err != nil:
		end = resolveTitle + " failed: " + err.Error()
		s.log.Warn("resolve dependencies failed", "error", err)
	}
	_ = s.notify("$/progress", progressParams{Token: token, Value: workDoneProgressEnd{Kind: "end", Message: end}})
}

func (s *Server) reindex(ctx context.Context) error {
	if err := s.ws.Invalidate(); err != nil {
		return err
	}
	for _, uri := range s.docs.URIs() {
		d, ok := s.docs.Get(uri)
		if !ok {
			continue
		}
		snap, err := s.docs.Analyze(ctx, uri, d.Seq())
		switch {
		case err == nil:
			if err := s.publish(snap); err != nil {
				return err
			}
		case errors.Is(err, document.ErrStale), errors.Is(err, document.ErrNotOpen):
		default:
			return err
		}
	}
	return nil
}
