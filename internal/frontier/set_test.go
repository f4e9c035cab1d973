package frontier_test

import (
	"testing"

	"github.com/rohmanhakim/docs-link-crawler/internal/frontier"
	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	s := frontier.NewSet[string]()
	assert.Equal(t, 0, s.Size())

	s.Add("a")
	s.Add("a")
	assert.Equal(t, 1, s.Size())
	assert.True(t, s.Contains("a"))
	assert.False(t, s.Contains("b"))

	assert.True(t, s.AddIfAbsent("b"))
	assert.False(t, s.AddIfAbsent("b"))
	assert.Equal(t, 2, s.Size())

	s.Remove("a")
	assert.False(t, s.Contains("a"))

	s.Clear()
	assert.Equal(t, 0, s.Size())
}
