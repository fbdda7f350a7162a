package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssembler_System(t *testing.T) {
	a := NewAssembler()

	system := a.System()
	assert.Contains(t, system, "InsightForge")
	assert.Contains(t, system, "Business Intelligence Analyst")
}

func TestAssembler_User(t *testing.T) {
	a := NewAssembler()

	excerpt := "Total Revenue: $350.00"
	question := "What is the total revenue?"
	user := a.User(excerpt, question)

	assert.Contains(t, user, "STATISTICAL CONTEXT:")
	assert.Contains(t, user, excerpt)
	assert.Contains(t, user, "QUESTION: "+question)

	// Context precedes the question, instructions close the payload.
	assert.Less(t, strings.Index(user, excerpt), strings.Index(user, question))
	assert.True(t, strings.HasSuffix(user, "business analysis:"))
}

func TestAssembler_Deterministic(t *testing.T) {
	a := NewAssembler()

	first := a.User("ctx", "q")
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, a.User("ctx", "q"))
	}
}
