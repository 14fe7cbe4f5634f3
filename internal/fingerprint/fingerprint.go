package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Field is one semantically significant request input.
type Field struct {
	Name  string
	Value string
}

func F(name, value string) Field {
	return Field{Name: name, Value: value}
}

// Key identifies one logical transformation request.
// Hash is sha256 of the normalized prompt version, operation and fields.
type Key struct {
	Operation     string
	PromptVersion string
	Hash          string
}

// String renders the key for logs: fp:<OPERATION>:<PROMPT_VERSION>:<HASH>
func (k Key) String() string {
	return fmt.Sprintf("fp:%s:%s:%s", k.Operation, k.PromptVersion, k.Hash)
}

// Compute derives the cache key for op under promptVersion. Values are
// trimmed and fields are ordered by name, so neither surrounding whitespace
// nor argument order changes the result.
func Compute(promptVersion, op string, fields ...Field) Key {
	promptVersion = strings.TrimSpace(promptVersion)
	op = strings.TrimSpace(op)

	sorted := make([]Field, len(fields))
	copy(sorted, fields)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	// every part is length-prefixed, so no value can fake a field boundary
	var b strings.Builder
	writePart(&b, promptVersion)
	writePart(&b, op)
	for _, f := range sorted {
		writePart(&b, strings.TrimSpace(f.Name))
		writePart(&b, strings.TrimSpace(f.Value))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return Key{
		Operation:     op,
		PromptVersion: promptVersion,
		Hash:          hex.EncodeToString(sum[:]),
	}
}

func writePart(b *strings.Builder, v string) {
	b.WriteString(strconv.Itoa(len(v)))
	b.WriteByte(':')
	b.WriteString(v)
	b.WriteByte('|')
}

// Parse reverses Key.String.
func Parse(s string) (Key, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 || parts[0] != "fp" {
		return Key{}, false
	}
	return Key{Operation: parts[1], PromptVersion: parts[2], Hash: parts[3]}, true
}
