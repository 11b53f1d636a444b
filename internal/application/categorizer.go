package application

import (
	"cmp"
	"slices"
	"strings"

	"github.com/ericfisherdev/relnotesgen/internal/domain/model"
)

// DefaultPriorityOrder is used when no priority ordering is configured.
var DefaultPriorityOrder = []string{"Highest", "High", "Medium", "Low", "Lowest"}

// dictionaryOrder maps each configured name to its position. Names outside the
// dictionary share a weight placing them after every named entry.
type dictionaryOrder map[string]int

func newDictionaryOrder(names []string) dictionaryOrder {
	order := make(dictionaryOrder, len(names))
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := order[name]; !dup {
			order[name] = i
		}
	}
	return order
}

func (d dictionaryOrder) weight(name string) int {
	if w, ok := d[name]; ok {
		return w
	}
	return len(d) + 1<<20
}

// IssueCategory is one group of issues sharing a type name.
type IssueCategory struct {
	Name   string
	Issues []model.Issue
}

// IssueCategorizer groups issues by type name and orders them using the
// configured type and priority dictionaries.
type IssueCategorizer struct {
	typeOrder     dictionaryOrder
	priorityOrder dictionaryOrder
}

// NewIssueCategorizer creates a categorizer. An empty priorityOrder falls back
// to DefaultPriorityOrder.
func NewIssueCategorizer(typeOrder, priorityOrder []string) *IssueCategorizer {
	if len(priorityOrder) == 0 {
		priorityOrder = DefaultPriorityOrder
	}
	return &IssueCategorizer{
		typeOrder:     newDictionaryOrder(typeOrder),
		priorityOrder: newDictionaryOrder(priorityOrder),
	}
}

// ByType groups issues by their verbatim type name. Categories named in the
// type dictionary come first in dictionary order, the rest follow in encounter
// order. Issues inside each category are sorted by priority, then key.
func (c *IssueCategorizer) ByType(issues []model.Issue) []IssueCategory {
	var categories []IssueCategory
	index := make(map[string]int)

	for _, issue := range issues {
		i, ok := index[issue.TypeName]
		if !ok {
			i = len(categories)
			index[issue.TypeName] = i
			categories = append(categories, IssueCategory{Name: issue.TypeName})
		}
		categories[i].Issues = append(categories[i].Issues, issue)
	}

	slices.SortStableFunc(categories, func(a, b IssueCategory) int {
		return cmp.Compare(c.typeOrder.weight(a.Name), c.typeOrder.weight(b.Name))
	})

	for i := range categories {
		slices.SortStableFunc(categories[i].Issues, c.comparePriority)
	}

	return categories
}

// comparePriority orders issues with a priority before issues without one.
// Priorities compare by dictionary weight; ties fall back to the issue key.
func (c *IssueCategorizer) comparePriority(a, b model.Issue) int {
	switch {
	case !a.HasPriority() && !b.HasPriority():
		return strings.Compare(a.Key, b.Key)
	case !a.HasPriority():
		return 1
	case !b.HasPriority():
		return -1
	}

	if byWeight := cmp.Compare(c.priorityOrder.weight(a.Priority), c.priorityOrder.weight(b.Priority)); byWeight != 0 {
		return byWeight
	}
	return strings.Compare(a.Key, b.Key)
}
