package hosttype

import (
	"errors"
	"log/slog"
	"sync"
)

// Context is the per-pass type arena. It memoizes every resolved type by
// qualified name, so repeated lookups return the same instance, and rejects
// supertype cycles. A Context is dropped with its pass; nothing in it is
// mutated after construction apart from lazily computed caches.
type Context struct {
	provider Provider
	log      *slog.Logger

	mu         sync.Mutex
	types      map[string]BaseType
	missing    map[string]struct{}
	inProgress map[string]bool
	stack      []string
	errs       []error
}

// NewContext returns an empty arena over p. A nil logger discards.
func NewContext(p Provider, log *slog.Logger) *Context {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Context{
		provider:   p,
		log:        log,
		types:      make(map[string]BaseType),
		missing:    make(map[string]struct{}),
		inProgress: make(map[string]bool),
	}
}

func (c *Context) Provider() Provider { return c.provider }

// Type returns the memoized type for qualifiedName, or nil when no provider
// knows it, when providers disagree, or when it closes a supertype cycle.
func (c *Context) Type(qualifiedName string) BaseType {
	if qualifiedName == "" || c == nil || c.provider == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typeLocked(qualifiedName)
}

func (c *Context) typeLocked(name string) BaseType {
	if t, ok := c.types[name]; ok {
		return t
	}
	if _, ok := c.missing[name]; ok {
		return nil
	}
	if c.inProgress[name] {
		chain := append(append([]string(nil), c.stack[c.indexOf(name):]...), name)
		c.errs = append(c.errs, &CycleError{Chain: chain})
		c.log.Debug("supertype cycle", "chain", chain)
		return nil
	}

	c.inProgress[name] = true
	c.stack = append(c.stack, name)
	defer func() {
		delete(c.inProgress, name)
		c.stack = c.stack[:len(c.stack)-1]
	}()

	t, err := c.provider.Resolve(c, name)
	if err != nil {
		var inc *InconsistencyError
		if errors.As(err, &inc) {
			c.log.Warn("backend inconsistency", "type", name, "detail", inc.Detail)
		} else {
			c.log.Debug("resolve failed", "type", name, "err", err)
		}
		c.errs = append(c.errs, err)
		c.missing[name] = struct{}{}
		return nil
	}
	if t == nil {
		c.missing[name] = struct{}{}
		return nil
	}

	if b, ok := t.(superBinder); ok {
		var supers []BaseType
		for _, sn := range b.superTypeNames() {
			if st := c.typeLocked(sn); st != nil {
				supers = append(supers, st)
			}
		}
		b.bindSuperTypes(supers)
	}
	c.types[name] = t
	return t
}

func (c *Context) indexOf(name string) int {
	for i, n := range c.stack {
		if n == name {
			return i
		}
	}
	return 0
}

// Errors returns the cycle and inconsistency errors recorded so far.
func (c *Context) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error(nil), c.errs...)
}

// ErrorsFor returns the recorded errors that mention name.
func (c *Context) ErrorsFor(name string) []error {
	var out []error
	for _, err := range c.Errors() {
		var cyc *CycleError
		var inc *InconsistencyError
		switch {
		case errors.As(err, &cyc):
			for _, n := range cyc.Chain {
				if n == name {
					out = append(out, err)
					break
				}
			}
		case errors.As(err, &inc):
			if inc.Name == name {
				out = append(out, err)
			}
		}
	}
	return out
}
