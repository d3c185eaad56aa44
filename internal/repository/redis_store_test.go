package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGlobEscape(t *testing.T) {
	assert.Equal(t, `pos:orders_`, globEscape("pos:orders_"))
	assert.Equal(t, `a\*b\?c\[d\]`, globEscape("a*b?c[d]"))
}

func TestRedisLocalStore_DefaultNamespace(t *testing.T) {
	s := NewRedisLocalStore(nil, "")
	assert.Equal(t, "pos:seats_latest", s.full("seats_latest"))
}
