package fingerprint

import (
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/devscore/integrity/domain/model"
)

const (
	// ShingleSize is the number of consecutive tokens hashed together.
	ShingleSize = 3
	// FingerprintSize is the number of smallest shingle hashes kept.
	FingerprintSize = 128

	rollingBase = 0x100000001b3
	hashMask    = 1<<63 - 1
)

// Compute returns the bottom-k sketch of code: the FingerprintSize smallest
// distinct shingle hashes in ascending order. Empty code yields an empty
// fingerprint.
func Compute(code string) []int64 {
	tokens := Tokenize(code)
	if len(tokens) == 0 {
		return []int64{}
	}

	hashes := shingleHashes(tokens)

	sketch := make([]int64, 0, len(hashes))
	for h := range hashes {
		sketch = append(sketch, h)
	}
	sort.Slice(sketch, func(i, j int) bool { return sketch[i] < sketch[j] })

	if len(sketch) > FingerprintSize {
		sketch = sketch[:FingerprintSize]
	}
	return sketch
}

// shingleHashes rolls a Rabin-Karp hash over token hashes. Inputs shorter
// than one shingle are hashed as a single shingle.
func shingleHashes(tokens []string) map[int64]struct{} {
	th := make([]uint64, len(tokens))
	for i, t := range tokens {
		th[i] = xxhash.Sum64String(t)
	}

	k := ShingleSize
	if len(th) < k {
		k = len(th)
	}

	// rollingBase^(k-1), wrapping mod 2^64
	var top uint64 = 1
	for i := 1; i < k; i++ {
		top *= rollingBase
	}

	var h uint64
	for i := 0; i < k; i++ {
		h = h*rollingBase + th[i]
	}

	out := make(map[int64]struct{}, len(th))
	out[finalize(h)] = struct{}{}
	for i := k; i < len(th); i++ {
		h = (h-th[i-k]*top)*rollingBase + th[i]
		out[finalize(h)] = struct{}{}
	}
	return out
}

// finalize spreads the rolling hash over all bits (splitmix64) and clears the
// sign bit so values store as non-negative int64.
func finalize(h uint64) int64 {
	h ^= h >> 30
	h *= 0xbf58476d1ce4e5b9
	h ^= h >> 27
	h *= 0x94d049bb133111eb
	h ^= h >> 31
	return int64(h & hashMask)
}

// Similarity is the Jaccard index of two fingerprints. An empty fingerprint
// is similar to nothing.
func Similarity(a, b []int64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	sa := mapset.NewThreadUnsafeSet(a...)
	sb := mapset.NewThreadUnsafeSet(b...)

	inter := sa.Intersect(sb).Cardinality()
	union := sa.Cardinality() + sb.Cardinality() - inter
	return float64(inter) / float64(union)
}

// ConcatAnswers joins non-blank answers in question order.
func ConcatAnswers(answers []model.CodeAnswer) string {
	ordered := make([]model.CodeAnswer, len(answers))
	copy(ordered, answers)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Position != ordered[j].Position {
			return ordered[i].Position < ordered[j].Position
		}
		return ordered[i].QuestionID < ordered[j].QuestionID
	})

	parts := make([]string, 0, len(ordered))
	for _, a := range ordered {
		if strings.TrimSpace(a.Code) == "" {
			continue
		}
		parts = append(parts, a.Code)
	}
	return strings.Join(parts, "\n")
}
