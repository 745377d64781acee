package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLikeQuotesMetacharacters(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"100%", `100\%`},
		{"a_b", `a\_b`},
		{`back\slash`, `back\\slash`},
		{"%_%", `\%\_\%`},
		{"plain title", "plain title"},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, escapeLike(tc.in), "input %q", tc.in)
	}
}
