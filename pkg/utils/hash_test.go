package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashStringDeterministic(t *testing.T) {
	a := HashString("some input")
	b := HashString("some input")
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestHashStringDistinguishesInputs(t *testing.T) {
	assert.NotEqual(t, HashString("a"), HashString("b"))
}
