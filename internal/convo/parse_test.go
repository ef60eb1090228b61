package convo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractZip(t *testing.T) {
	zip, ok := extractZip("I'm in 94102 right now")
	assert.True(t, ok)
	assert.Equal(t, "94102", zip)

	_, ok = extractZip("downtown, near the park")
	assert.False(t, ok)

	// Longer digit runs are not ZIP codes.
	_, ok = extractZip("call me at 4155550100")
	assert.False(t, ok)
}

func TestExtractOrdinal(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"1", 1, true},
		{"option 3 please", 3, true},
		{"the second one", 2, true},
		{"first", 1, true},
		{"none of those", 0, false},
		{"maybe later", 0, false},
	}
	for _, tc := range cases {
		got, ok := extractOrdinal(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got, tc.in)
		}
	}
}

func TestAffirmativeNegative(t *testing.T) {
	assert.True(t, isAffirmative("yes"))
	assert.True(t, isAffirmative("Yep, go ahead"))
	assert.True(t, isAffirmative("sure"))
	assert.False(t, isAffirmative("not yet"))

	assert.True(t, isNegative("no"))
	assert.True(t, isNegative("nope, different time"))
	assert.False(t, isNegative("sounds good"))
}

func TestExtractContact(t *testing.T) {
	phone, ok := extractPhone("reach me at (415) 555-0100 thanks")
	assert.True(t, ok)
	assert.Equal(t, "(415) 555-0100", phone)

	email, ok := extractEmail("it's jane.doe+clinic@example.com")
	assert.True(t, ok)
	assert.Equal(t, "jane.doe+clinic@example.com", email)

	_, ok = extractPhone("no number here")
	assert.False(t, ok)
}

func TestNameFromMessage(t *testing.T) {
	assert.Equal(t, "Jane Doe", nameFromMessage("My name is Jane Doe, 415-555-0100"))
	assert.Equal(t, "Jane Doe", nameFromMessage("Jane Doe 415-555-0100"))
	assert.Empty(t, nameFromMessage("yes"))
	assert.Empty(t, nameFromMessage("415-555-0100"))
}
