package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in     string
		local  string
		domain string
		ok     bool
	}{
		{"a@b.com", "a", "b.com", true},
		{"first.last@example.co.uk", "first.last", "example.co.uk", true},
		{"user+tag@example.com", "user+tag", "example.com", true},
		{"o'brien@example.com", "o'brien", "example.com", true},
		{"x@localhost", "x", "localhost", true},
		{"no-at-sign", "", "", false},
		{"@example.com", "", "", false},
		{"user@", "", "", false},
		{"", "", "", false},
		{"us er@example.com", "", "", false},
		{".user@example.com", "", "", false},
		{"user.@example.com", "", "", false},
		{"us..er@example.com", "", "", false},
		{"user@exa mple.com", "", "", false},
		{"user@example..com", "", "", false},
		{"user@.example.com", "", "", false},
		{"user@-example.com", "", "", false},
		{"user@example.com-", "", "", false},
	}
	var p Parser
	for _, c := range cases {
		a, err := p.Parse(c.in)
		if c.ok {
			if !assert.NoError(t, err, c.in) {
				continue
			}
			assert.Equal(t, c.local, a.LocalPart, c.in)
			assert.Equal(t, c.domain, a.Domain, c.in)
			assert.Equal(t, c.in, a.String())
		} else {
			assert.Error(t, err, c.in)
		}
	}
}

func TestParsePermissiveLocalPart(t *testing.T) {
	p := Parser{PermissiveLocalPart: true}
	a, err := p.Parse(`us"er@example.com`)
	assert.NoError(t, err)
	assert.Equal(t, `us"er`, a.LocalPart)

	_, err = p.Parse("us er@example.com")
	assert.Error(t, err)

	strict := Parser{}
	_, err = strict.Parse(`us"er@example.com`)
	assert.Error(t, err)
}

func TestFormatDisplayName(t *testing.T) {
	assert.Equal(t, "Ops", FormatDisplayName("Ops"))
	assert.Equal(t, "Ops Team", FormatDisplayName("Ops Team"))
	assert.Equal(t, `"Ops, Team"`, FormatDisplayName("Ops, Team"))
	assert.Equal(t, `"John \"Q\" Public"`, FormatDisplayName(`John "Q" Public`))
	assert.Equal(t, "=?utf-8?q?Caf=C3=A9?=", FormatDisplayName("Café"))
}
