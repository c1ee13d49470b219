package reflected

import (
	"errors"

	"dtolsp/internal/hosttype"
)

// Provider resolves qualified names against the current index generation.
type Provider struct {
	index *Index
}

func NewProvider(index *Index) *Provider {
	return &Provider{index: index}
}

func (p *Provider) Name() string { return backendName }

func (p *Provider) Index() *Index { return p.index }

func (p *Provider) Resolve(ctx *hosttype.Context, qualifiedName string) (hosttype.BaseType, error) {
	gen := p.index.Generation()
	if gen == nil {
		return nil, nil
	}
	cls, origin, err := gen.Class(qualifiedName)
	if errors.Is(err, hosttype.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// Avoid returning a typed nil inside the interface.
	if t := newType(ctx, cls, origin); t != nil {
		return t, nil
	}
	return nil, nil
}

func (p *Provider) ClassNames() []string {
	if gen := p.index.Generation(); gen != nil {
		return gen.Names()
	}
	return nil
}

func (p *Provider) AnnotationNames() []string {
	if gen := p.index.Generation(); gen != nil {
		return gen.AnnotationNames()
	}
	return nil
}

func (p *Provider) ImmutableNames() []string {
	if gen := p.index.Generation(); gen != nil {
		return gen.ImmutableNames()
	}
	return nil
}
