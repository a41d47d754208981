package graspsim

import (
	"fmt"
	"strings"
)

type contactKind int

const (
	contactLeaf contactKind = iota
	contactAnyOf
	contactAllOf
)

// ContactRequirement expresses which links must touch the object for a grasp
// to count as successful, as a nested AND/OR condition over link ids. Values
// are immutable after construction.
type ContactRequirement struct {
	kind     contactKind
	link     int
	children []*ContactRequirement
}

// ContactLink requires contact on a single link.
func ContactLink(link int) *ContactRequirement {
	return &ContactRequirement{kind: contactLeaf, link: link}
}

// ContactAnyOf is satisfied when at least one member is satisfied.
func ContactAnyOf(reqs ...*ContactRequirement) *ContactRequirement {
	return &ContactRequirement{kind: contactAnyOf, children: reqs}
}

// ContactAllOf is satisfied when every member is satisfied.
func ContactAllOf(reqs ...*ContactRequirement) *ContactRequirement {
	return &ContactRequirement{kind: contactAllOf, children: reqs}
}

// Satisfied evaluates the requirement against a contact predicate.
func (r *ContactRequirement) Satisfied(inContact func(link int) bool) bool {
	switch r.kind {
	case contactLeaf:
		return inContact(r.link)
	case contactAnyOf:
		for _, child := range r.children {
			if child.Satisfied(inContact) {
				return true
			}
		}
		return false
	default:
		for _, child := range r.children {
			if !child.Satisfied(inContact) {
				return false
			}
		}
		return true
	}
}

// Links returns every link id mentioned in the requirement.
func (r *ContactRequirement) Links() []int {
	if r.kind == contactLeaf {
		return []int{r.link}
	}
	var links []int
	for _, child := range r.children {
		links = append(links, child.Links()...)
	}
	return links
}

func (r *ContactRequirement) String() string {
	switch r.kind {
	case contactLeaf:
		return fmt.Sprintf("link %d", r.link)
	case contactAnyOf:
		return joinChildren(r.children, " or ")
	default:
		return joinChildren(r.children, " and ")
	}
}

func joinChildren(children []*ContactRequirement, sep string) string {
	parts := make([]string, len(children))
	for i, child := range children {
		parts[i] = child.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}
