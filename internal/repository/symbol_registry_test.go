package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbolRegistry(t *testing.T) {
	r := NewSymbolRegistry([]string{"aapl", " MSFT ", "AAPL", "", "spy"})

	assert.True(t, r.IsValid("AAPL"))
	assert.True(t, r.IsValid("aapl"))
	assert.True(t, r.IsValid(" spy"))
	assert.False(t, r.IsValid("ZZZZ"))
	assert.False(t, r.IsValid(""))
	assert.Equal(t, []string{"AAPL", "MSFT", "SPY"}, r.List())

	l := r.List()
	l[0] = "XXX"
	assert.Equal(t, "AAPL", r.List()[0])
}

func TestNilRegistryFailsClosed(t *testing.T) {
	var r *SymbolRegistry
	assert.False(t, r.IsValid("AAPL"))
}
