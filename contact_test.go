package graspsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContactRequirementSatisfied(t *testing.T) {
	// link 1 alone, or links 3 and 4 together
	req := ContactAnyOf(
		ContactLink(1),
		ContactAllOf(ContactLink(3), ContactLink(4)),
	)

	tests := []struct {
		name     string
		touching map[int]bool
		expected bool
	}{
		{"no contacts", map[int]bool{}, false},
		{"single link satisfied", map[int]bool{1: true}, true},
		{"partial all-of", map[int]bool{3: true}, false},
		{"complete all-of", map[int]bool{3: true, 4: true}, true},
		{"everything touching", map[int]bool{1: true, 3: true, 4: true}, true},
		{"irrelevant link", map[int]bool{7: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := req.Satisfied(func(link int) bool { return tt.touching[link] })
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestContactRequirementNestedTruthTable(t *testing.T) {
	// link 1 must touch, and at least one of links 3 and 4 must touch
	req := ContactAllOf(
		ContactLink(1),
		ContactAnyOf(ContactLink(3), ContactLink(4)),
	)

	tests := []struct {
		name     string
		touching map[int]bool
		expected bool
	}{
		{"neither condition", map[int]bool{}, false},
		{"only required link", map[int]bool{1: true}, false},
		{"only alternative links", map[int]bool{3: true, 4: true}, false},
		{"required link plus one alternative", map[int]bool{1: true, 3: true}, true},
		{"required link plus other alternative", map[int]bool{1: true, 4: true}, true},
		{"required link plus both alternatives", map[int]bool{1: true, 3: true, 4: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := req.Satisfied(func(link int) bool { return tt.touching[link] })
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestContactRequirementLinks(t *testing.T) {
	req := ContactAnyOf(
		ContactLink(1),
		ContactAllOf(ContactLink(3), ContactLink(4)),
	)
	assert.ElementsMatch(t, []int{1, 3, 4}, req.Links())

	leaf := ContactLink(8)
	assert.Equal(t, []int{8}, leaf.Links())
}

func TestContactRequirementString(t *testing.T) {
	assert.Equal(t, "link 3", ContactLink(3).String())
	assert.Equal(t, "(link 3 and link 8)",
		ContactAllOf(ContactLink(3), ContactLink(8)).String())
	assert.Equal(t, "(link 1 or (link 3 and link 4))",
		ContactAnyOf(ContactLink(1), ContactAllOf(ContactLink(3), ContactLink(4))).String())
}
