package game

import (
	"regexp"
	"strings"
)

const (
	// MaxGuessLength bounds the size of input the evaluator looks at.
	MaxGuessLength = 50

	fuzzyThreshold = 0.7
)

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// Normalize strips everything outside [A-Za-z0-9_] and lower-cases the rest,
// so spacing, punctuation and case never decide a match.
func Normalize(s string) string {
	return strings.ToLower(nonAlphanumeric.ReplaceAllString(s, ""))
}

// MatchExact reports whether the normalized guess equals the normalized
// answer. Answers that normalize to a single character are unmatchable.
func MatchExact(guess, answer string) bool {
	if len(guess) > MaxGuessLength {
		return false
	}
	g := Normalize(guess)
	a := Normalize(answer)
	return len(a) > 1 && g == a
}

// MatchFuzzy reports whether the normalized guess is similar enough to the
// normalized answer to count as correct.
func MatchFuzzy(guess, answer string) bool {
	if len(guess) > MaxGuessLength {
		return false
	}
	return Similarity(Normalize(guess), Normalize(answer)) >= fuzzyThreshold
}

// Similarity is a Ratcliff/Obershelp ratio: twice the number of characters
// covered by recursively matched longest common blocks, divided by the
// combined length of both strings. Identical strings score 1, disjoint
// strings score 0.
func Similarity(a, b string) float64 {
	if len(a)+len(b) == 0 {
		return 1
	}
	matched := matchingBlockChars(a, b)
	return 2 * float64(matched) / float64(len(a)+len(b))
}

func matchingBlockChars(a, b string) int {
	ai, bi, size := longestCommonBlock(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingBlockChars(a[:ai], b[:bi]) +
		matchingBlockChars(a[ai+size:], b[bi+size:])
}

// longestCommonBlock finds the longest common substring, preferring the
// earliest occurrence in a on ties.
func longestCommonBlock(a, b string) (ai, bi, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	// run[j] is the length of the common suffix of a[:i+1] and b[:j+1].
	run := make([]int, len(b)+1)
	for i := 0; i < len(a); i++ {
		prev := 0
		for j := 0; j < len(b); j++ {
			cur := run[j+1]
			if a[i] == b[j] {
				run[j+1] = prev + 1
				if run[j+1] > size {
					size = run[j+1]
					ai = i - size + 1
					bi = j - size + 1
				}
			} else {
				run[j+1] = 0
			}
			prev = cur
		}
	}
	return ai, bi, size
}
