// Package normalize provides field value normalization for duplicate matching
package normalize

import (
	"strings"
	"unicode"
)

// maxCacheKeyLen bounds the memo cache: inputs whose combined key exceeds
// this length are normalized but never cached, so the cache cannot grow on
// pathological values.
const maxCacheKeyLen = 200

// defaultCacheSize is the entry ceiling for one Normalizer instance
const defaultCacheSize = 10000

// Normalizer applies deterministic string normalization with a bounded
// per-instance memoization cache. It is not safe for concurrent use; each
// execution cycle owns its own instance.
type Normalizer struct {
	cache   map[string]string
	maxSize int
}

// New creates a Normalizer with the default cache ceiling
func New() *Normalizer {
	return NewWithCacheSize(defaultCacheSize)
}

// NewWithCacheSize creates a Normalizer with an explicit cache ceiling
func NewWithCacheSize(size int) *Normalizer {
	return &Normalizer{
		cache:   make(map[string]string),
		maxSize: size,
	}
}

// Clear drops every cached entry
func (n *Normalizer) Clear() {
	n.cache = make(map[string]string)
}

// CacheLen returns the number of cached entries
func (n *Normalizer) CacheLen() int {
	return len(n.cache)
}

func (n *Normalizer) memo(kind, raw string, fn func(string) string) string {
	key := kind + "\x00" + raw
	if len(key) > maxCacheKeyLen {
		return fn(raw)
	}
	if cached, ok := n.cache[key]; ok {
		return cached
	}
	result := fn(raw)
	if len(n.cache) < n.maxSize {
		n.cache[key] = result
	}
	return result
}

// Normalize lowercases, replaces every non-alphanumeric rune with a single
// space, collapses repeated whitespace, and trims. Safe on blank input.
func (n *Normalizer) Normalize(s string) string {
	return n.memo("text", s, NormalizeText)
}

// NormalizePhone strips everything but digits
func (n *Normalizer) NormalizePhone(s string) string {
	return n.memo("phone", s, DigitsOnly)
}

// NormalizeEmail lowercases and trims only; the @ and . must survive
func (n *Normalizer) NormalizeEmail(s string) string {
	return n.memo("email", s, NormalizeEmail)
}

// Alphanumeric keeps only letters and digits, lowercased
func (n *Normalizer) Alphanumeric(s string) string {
	return n.memo("alnum", s, Alphanumeric)
}

// Skeleton returns the consonant skeleton used for phonetic keys
func (n *Normalizer) Skeleton(s string) string {
	return n.memo("skel", s, ConsonantSkeleton)
}

// NormalizeText is the pure form of Normalizer.Normalize
func NormalizeText(s string) string {
	s = strings.ToLower(s)

	var result strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
			prevSpace = false
		} else if !prevSpace {
			result.WriteRune(' ')
			prevSpace = true
		}
	}

	return strings.TrimSpace(result.String())
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Alphanumeric keeps only letters and digits, lowercased
func Alphanumeric(s string) string {
	var result strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// ConsonantSkeleton drops non-letters, keeps the first letter, and strips
// vowels from the remainder. Deterministic phonetic reduction for composite
// keys; it is intentionally cruder than Soundex so that identical skeletons
// stay readable in group keys.
func ConsonantSkeleton(s string) string {
	var letters []rune
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) {
			letters = append(letters, r)
		}
	}
	if len(letters) == 0 {
		return ""
	}

	var result strings.Builder
	result.WriteRune(letters[0])
	for _, r := range letters[1:] {
		switch r {
		case 'a', 'e', 'i', 'o', 'u':
			continue
		default:
			result.WriteRune(r)
		}
	}
	return result.String()
}
