package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("stack empty", From("stack empty"))
	assert.Equal("line 3 pc 0x204", From("line %d pc 0x%03x", 3, 0x204))
}
