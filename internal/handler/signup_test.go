package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ref(id uint64) *courseRef { return &courseRef{ID: id} }

func owner(s string) *string { return &s }

func TestBatchDuplicateViolationsFlagsRepeatedPair(t *testing.T) {
	items := []signupBody{
		{Nethz: owner("alice"), Course: ref(7)},
		{Nethz: owner("alice"), Course: ref(7)},
	}
	violations := batchDuplicateViolations(items, "alice")
	assert.Len(t, violations, 1)
	assert.Equal(t, "course", violations[0].Field)
}

func TestBatchDuplicateViolationsUsesCallerNethzAsFallback(t *testing.T) {
	// One item spells the caller's nethz out, the other omits it; both
	// resolve to the same owner and course.
	items := []signupBody{
		{Course: ref(7)},
		{Nethz: owner("alice"), Course: ref(7)},
	}
	assert.Len(t, batchDuplicateViolations(items, "alice"), 1)
}

func TestBatchDuplicateViolationsAllowsDistinctPairs(t *testing.T) {
	items := []signupBody{
		{Nethz: owner("alice"), Course: ref(7)},
		{Nethz: owner("alice"), Course: ref(8)},
		{Nethz: owner("bob"), Course: ref(7)},
	}
	assert.Empty(t, batchDuplicateViolations(items, "alice"))
}

func TestBatchDuplicateViolationsSkipsItemsWithoutCourse(t *testing.T) {
	// Items with no usable course are flagged elsewhere; the duplicate
	// pass must not trip over them.
	items := []signupBody{
		{Nethz: owner("alice")},
		{Nethz: owner("alice")},
	}
	assert.Empty(t, batchDuplicateViolations(items, "alice"))
}
