package snowflake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateIDMonotonic(t *testing.T) {
	prev := GenerateID()
	for i := 0; i < 1000; i++ {
		id := GenerateID()
		assert.Greater(t, id, prev)
		prev = id
	}
}
