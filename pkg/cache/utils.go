package cache

import (
	"fmt"
	"strings"
)

// GenerateKey joins a prefix and identifier into a cache key.
func GenerateKey(prefix string, id string) string {
	return prefix + ":" + id
}

// GenerateKeyWithParams builds a colon-separated key from a prefix and
// any number of parameters. Callers are expected to normalize params
// first; the builder does not touch case or whitespace.
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range params {
		b.WriteByte(':')
		fmt.Fprintf(&b, "%v", p)
	}
	return b.String()
}

// BuildPattern turns a key prefix into the glob DeleteByPattern
// expects.
func BuildPattern(prefix string) string {
	return prefix + "*"
}
