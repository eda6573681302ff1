package action

import (
	"context"
	"strings"

	"tqa/reasoning"
)

// KnowledgeItem is one retrieved fact.
type KnowledgeItem struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
}

// GeneralProvider answers open-domain queries (wiki-like).
type GeneralProvider interface {
	Search(ctx context.Context, query string, topK int) ([]KnowledgeItem, error)
}

// DomainProvider answers domain glossary lookups (e.g. finance ontologies).
type DomainProvider interface {
	Lookup(ctx context.Context, term string, topK int) ([]KnowledgeItem, error)
}

// GeneralRetrieval fetches general knowledge for ambiguous terms. Without a
// configured provider it records an empty stub result so the branch can
// still proceed.
type GeneralRetrieval struct {
	provider GeneralProvider
}

func (*GeneralRetrieval) Name() string       { return "GeneralRetrieval" }
func (*GeneralRetrieval) Category() Category { return CategoryKnowledge }

func (*GeneralRetrieval) Feasible(_ *reasoning.State, p Params) bool {
	return strings.TrimSpace(p.String("query")) != ""
}

func (a *GeneralRetrieval) Apply(ctx context.Context, s *reasoning.State, p Params) (*reasoning.State, reasoning.Artifact, error) {
	query := strings.TrimSpace(p.String("query"))
	if query == "" {
		return nil, nil, infeasible("GeneralRetrieval requires query")
	}
	topK, ok := p.Int("topk")
	if !ok || topK <= 0 {
		topK = 3
	}

	var items []KnowledgeItem
	stub := a.provider == nil
	if !stub {
		var err error
		if items, err = a.provider.Search(ctx, query, topK); err != nil {
			return nil, nil, err
		}
	}

	next := s.Fork()
	next.Memory[KeyGeneralKB] = items

	return next, reasoning.Artifact{
		"out_key":   KeyGeneralKB,
		"query":     query,
		"num_items": len(items),
		"stub":      stub,
	}, nil
}

// DomainRetrieval looks up domain-specific terminology.
type DomainRetrieval struct {
	provider DomainProvider
}

func (*DomainRetrieval) Name() string       { return "DomainRetrieval" }
func (*DomainRetrieval) Category() Category { return CategoryKnowledge }

func (*DomainRetrieval) Feasible(_ *reasoning.State, p Params) bool {
	return strings.TrimSpace(p.String("term")) != ""
}

func (a *DomainRetrieval) Apply(ctx context.Context, s *reasoning.State, p Params) (*reasoning.State, reasoning.Artifact, error) {
	term := strings.TrimSpace(p.String("term"))
	if term == "" {
		return nil, nil, infeasible("DomainRetrieval requires term")
	}
	topK, ok := p.Int("topk")
	if !ok || topK <= 0 {
		topK = 3
	}

	var items []KnowledgeItem
	stub := a.provider == nil
	if !stub {
		var err error
		if items, err = a.provider.Lookup(ctx, term, topK); err != nil {
			return nil, nil, err
		}
	}

	next := s.Fork()
	next.Memory[KeyDomainKB] = items

	return next, reasoning.Artifact{
		"out_key":   KeyDomainKB,
		"term":      term,
		"num_items": len(items),
		"stub":      stub,
	}, nil
}
