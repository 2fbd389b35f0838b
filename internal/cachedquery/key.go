package cachedquery

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Key identifies one cached payload. It always carries a schema version and
// every dimension that changes the payload shape:
//
//	lessons_list_themed_v2_en
//	quest_quiz_v1_7
//
// Bump the version whenever the fetch function's result type changes, so
// payloads cached by older builds are never decoded into the new shape.
type Key string

var (
	keyPattern  = regexp.MustCompile(`^([a-z][a-z0-9_]*?)_v([1-9][0-9]*)((?:_[A-Za-z0-9-]+)*)$`)
	namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// nameVersionTag must not occur in a name, or Name and Version would split
// the key in the wrong place.
var nameVersionTag = regexp.MustCompile(`_v[0-9]`)

// NewKey builds a key from a name, a schema version and the shape-changing
// dimensions (language code, entity id). It panics on an invalid name, a name
// already containing _v<digit>, or a version below 1, which are programming
// errors.
func NewKey(name string, version int, dims ...string) Key {
	if !namePattern.MatchString(name) || nameVersionTag.MatchString(name) {
		panic(fmt.Sprintf("cachedquery: invalid key name %q", name))
	}
	if version < 1 {
		panic(fmt.Sprintf("cachedquery: key %q needs a version >= 1", name))
	}
	var b strings.Builder
	b.WriteString(name)
	b.WriteString("_v")
	b.WriteString(strconv.Itoa(version))
	for _, d := range dims {
		b.WriteByte('_')
		b.WriteString(sanitizeDim(d))
	}
	return Key(b.String())
}

// ParseKey validates a raw key string. Keys without a _v<N> version tag are
// rejected.
func ParseKey(s string) (Key, error) {
	if !keyPattern.MatchString(s) {
		return "", fmt.Errorf("cache key %q: want <name>_v<version>[_<dim>...]", s)
	}
	return Key(s), nil
}

// MustParseKey is ParseKey for constants; it panics on error.
func MustParseKey(s string) Key {
	k, err := ParseKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

// Name returns the key's name part.
func (k Key) Name() string {
	m := keyPattern.FindStringSubmatch(string(k))
	if m == nil {
		return ""
	}
	return m[1]
}

// Version returns the key's schema version, or 0 for an invalid key.
func (k Key) Version() int {
	m := keyPattern.FindStringSubmatch(string(k))
	if m == nil {
		return 0
	}
	v, _ := strconv.Atoi(m[2])
	return v
}

// Dims returns the key's dimensions in order.
func (k Key) Dims() []string {
	m := keyPattern.FindStringSubmatch(string(k))
	if m == nil || m[3] == "" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(m[3], "_"), "_")
}

func (k Key) String() string {
	return string(k)
}

// sanitizeDim keeps a dimension within [A-Za-z0-9-]; empty becomes "none".
func sanitizeDim(d string) string {
	d = strings.TrimSpace(d)
	if d == "" {
		return "none"
	}
	var b strings.Builder
	for _, r := range d {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
