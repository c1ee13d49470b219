package srcparse

import (
	"dtolsp/internal/hosttype"
)

// Provider resolves qualified names against the current source generation.
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
	file, td, ok := gen.Lookup(qualifiedName)
	if !ok {
		return nil, nil
	}
	if t := newType(ctx, file, td, gen.Has); t != nil {
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
