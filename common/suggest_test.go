package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggest(t *testing.T) {
	vocab := []string{"POSITION", "NORMAL", "TEXCOORD_0", "TEXCOORD_1", "TANGENT"}

	assert.Equal(t, "NORMAL", Suggest("NORMLA", vocab))
	assert.Equal(t, "POSITION", Suggest("position", vocab))
	assert.Equal(t, "TEXCOORD_0", Suggest("TEXCORD_0", vocab))
	assert.Empty(t, Suggest("FOOBAR", vocab))
	assert.Empty(t, Suggest("x", nil))
}

func TestCoalesceAndSortedKeys(t *testing.T) {
	assert.Equal(t, "b", Coalesce("", "b", "c"))
	assert.Equal(t, 0, Coalesce(0, 0))
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
}
