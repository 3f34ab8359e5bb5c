package xid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPrefixesAndIsUnique(t *testing.T) {
	a := New("sale")
	b := New("sale")
	assert.True(t, strings.HasPrefix(a, "sale-"))
	assert.Len(t, a, len("sale-")+32)
	assert.NotEqual(t, a, b)
	assert.Len(t, New(""), 32)
}
