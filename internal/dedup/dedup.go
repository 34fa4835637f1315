package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds compatibility forms, lower-cases and keeps only letters and digits.
func Normalize(s string) string {
	s = norm.NFKC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}

	return b.String()
}

// Fingerprint is the hex SHA-256 of the normalized title and the UTC publish day.
// now supplies the day when published is nil.
func Fingerprint(title string, published *time.Time, now time.Time) string {
	day := now
	if published != nil {
		day = *published
	}

	sum := sha256.Sum256([]byte(Normalize(title) + ":" + day.UTC().Format(time.DateOnly)))
	return hex.EncodeToString(sum[:])
}

// Similarity is the matching-blocks ratio 2M/T over runes: 0 when either side is empty, 1 for equal strings.
// The pair is put in a fixed order first, so Similarity(a, b) == Similarity(b, a).
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	if a > b {
		a, b = b, a
	}

	ra, rb := []rune(a), []rune(b)
	matches := matchingRunes(ra, rb)

	return 2 * float64(matches) / float64(len(ra)+len(rb))
}

type span struct {
	alo, ahi, blo, bhi int
}

// matchingRunes sums the sizes of the matching blocks found by repeatedly taking the
// longest common substring and recursing on both sides of it.
func matchingRunes(a, b []rune) int {
	b2j := make(map[rune][]int)
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	total := 0
	stack := []span{{0, len(a), 0, len(b)}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		i, j, k := longestMatch(a, b2j, s)
		if k == 0 {
			continue
		}
		total += k

		if s.alo < i && s.blo < j {
			stack = append(stack, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			stack = append(stack, span{i + k, s.ahi, j + k, s.bhi})
		}
	}

	return total
}

// longestMatch returns the earliest longest block a[i:i+k] == b[j:j+k] inside s.
func longestMatch(a []rune, b2j map[rune][]int, s span) (int, int, int) {
	besti, bestj, bestk := s.alo, s.blo, 0

	j2len := make(map[int]int)
	for i := s.alo; i < s.ahi; i++ {
		next := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < s.blo {
				continue
			}
			if j >= s.bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}

	return besti, bestj, bestk
}
