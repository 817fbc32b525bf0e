// Package address implements structural validation of bare addr-spec
// strings of the form "local-part@domain", plus rendering of display-name
// phrases for the From header. It is deliberately narrower than a full
// RFC 5322 parser: no angle-addr, no groups, no comments.
package address

import (
	"errors"
	"mime"
	"strings"
)

// Address is a structurally valid addr-spec.
type Address struct {
	LocalPart string
	Domain    string
}

func (a Address) String() string {
	return a.LocalPart + "@" + a.Domain
}

// Parser validates bare addr-spec strings.
type Parser struct {
	// PermissiveLocalPart accepts any printable ASCII local part
	// instead of requiring an RFC 5322 dot-atom.
	PermissiveLocalPart bool
}

func (p *Parser) Parse(s string) (Address, error) {
	i := strings.LastIndexByte(s, '@')
	if i < 0 {
		return Address{}, errors.New("missing '@' in addr-spec")
	}
	local, domain := s[:i], s[i+1:]
	if local == "" {
		return Address{}, errors.New("no local-part in addr-spec")
	}
	if domain == "" {
		return Address{}, errors.New("no domain in addr-spec")
	}
	if p.PermissiveLocalPart {
		for j := 0; j < len(local); j++ {
			if local[j] <= ' ' || local[j] >= 0x7f {
				return Address{}, errors.New("bad character in local-part")
			}
		}
	} else if err := checkDotAtom(local); err != nil {
		return Address{}, err
	}
	if err := checkDomain(domain); err != nil {
		return Address{}, err
	}
	return Address{LocalPart: local, Domain: domain}, nil
}

func checkDotAtom(local string) error {
	if local[0] == '.' {
		return errors.New("leading dot in local-part")
	}
	if local[len(local)-1] == '.' {
		return errors.New("trailing dot in local-part")
	}
	prevDot := false
	for j := 0; j < len(local); j++ {
		c := local[j]
		if c == '.' {
			if prevDot {
				return errors.New("doubled dot in local-part")
			}
			prevDot = true
			continue
		}
		prevDot = false
		if !isAtext(c) {
			return errors.New("bad character in local-part")
		}
	}
	return nil
}

func checkDomain(domain string) error {
	for _, label := range strings.Split(domain, ".") {
		if label == "" {
			return errors.New("empty label in domain")
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return errors.New("label starts or ends with '-' in domain")
		}
		for j := 0; j < len(label); j++ {
			c := label[j]
			if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-') {
				return errors.New("bad character in domain")
			}
		}
	}
	return nil
}

func isAtext(c byte) bool {
	if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
		return true
	}
	return strings.IndexByte("!#$%&'*+-/=?^_`{|}~", c) >= 0
}

// FormatDisplayName renders name as an RFC 5322 phrase, quoting it when
// it contains specials and falling back to RFC 2047 encoding when it
// contains non-ASCII characters.
func FormatDisplayName(name string) string {
	ascii := true
	plain := true
	for _, r := range name {
		if r >= 0x80 {
			ascii = false
			break
		}
		if !isAtext(byte(r)) && r != ' ' {
			plain = false
		}
	}
	if !ascii {
		return mime.QEncoding.Encode("utf-8", name)
	}
	if plain {
		return name
	}
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '"' || c == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(c)
	}
	sb.WriteByte('"')
	return sb.String()
}
