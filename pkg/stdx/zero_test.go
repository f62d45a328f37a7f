package stdx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZero(t *testing.T) {
	assert.Equal(t, 0, Zero[int]())
	assert.Equal(t, "", Zero[string]())
	assert.False(t, Zero[bool]())
	assert.Nil(t, Zero[*int]())
	assert.Nil(t, Zero[[]string]())
	assert.Nil(t, Zero[any]())

	type sample struct {
		N    int
		Tags map[string]string
	}
	assert.Equal(t, sample{}, Zero[sample]())
}
