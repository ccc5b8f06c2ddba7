package fingerprint

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/devscore/integrity/domain/model"
	"github.com/devscore/integrity/domain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoSum = `def two_sum(nums, target):
    seen = {}
    for i, n in enumerate(nums):
        if target - n in seen:
            return [seen[target - n], i]
        seen[n] = i
    return []`

const twoSumRenamed = `def two_sum(arr, goal):
    lookup = {}
    for idx, val in enumerate(arr):
        if goal - val in lookup:
            return [lookup[goal - val], idx]
        lookup[val] = idx
    return []`

const reverseJS = `function reverse(s) {
  let out = '';
  while (s.length > 0) {
    out = s.charAt(s.length - 1) + out;
    s = s.substring(0, s.length - 1);
  }
  return out;
}`

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		code string
		want []string
	}{
		{
			name: "identifiers collapse, keywords and numbers stay",
			code: "def f(x): return x+1",
			want: []string{"def", "ID", "(", "ID", ")", ":", "return", "ID", "+", "1"},
		},
		{
			name: "comments are dropped",
			code: "a = 1 # note\n/* block\ncomment */ b = 2 // tail",
			want: []string{"ID", "=", "1", "ID", "=", "2"},
		},
		{
			name: "string literals become one token",
			code: `print("a // not a comment", 'b')`,
			want: []string{"print", "(", "STR", ",", "STR", ")"},
		},
		{
			name: "case is ignored",
			code: "RETURN Foo",
			want: []string{"return", "ID"},
		},
		{
			name: "blank",
			code: "  \n\t ",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.code))
		})
	}
}

func TestCompute_Shape(t *testing.T) {
	assert.Empty(t, Compute(""))
	assert.Empty(t, Compute("   // only a comment"))

	small := Compute("x")
	assert.Len(t, small, 1)

	var b strings.Builder
	for i := 0; i < 500; i++ {
		fmt.Fprintf(&b, "total = total + %d\n", i)
	}
	large := Compute(b.String())
	require.Len(t, large, FingerprintSize)
	assert.True(t, sort.SliceIsSorted(large, func(i, j int) bool { return large[i] < large[j] }))
	for i, v := range large {
		assert.GreaterOrEqual(t, v, int64(0))
		if i > 0 {
			assert.NotEqual(t, large[i-1], v)
		}
	}

	assert.Equal(t, large, Compute(b.String()))
}

func TestSimilarity_Properties(t *testing.T) {
	a := Compute(twoSum)
	b := Compute(reverseJS)

	assert.Equal(t, 1.0, Similarity(a, a))
	assert.Equal(t, 0.0, Similarity(a, nil))
	assert.Equal(t, 0.0, Similarity(nil, nil))
	assert.Equal(t, Similarity(a, b), Similarity(b, a))

	s := Similarity(a, b)
	assert.GreaterOrEqual(t, s, 0.0)
	assert.LessOrEqual(t, s, 1.0)

	assert.InDelta(t, 1.0/3.0, Similarity([]int64{1, 2}, []int64{2, 3}), 1e-9)
}

func TestSimilarity_Sensitivity(t *testing.T) {
	renamed := Similarity(Compute("def f(x): return x+1"), Compute("def f(y): return y+1"))
	assert.Greater(t, renamed, 0.85)

	assert.Greater(t, Similarity(Compute(twoSum), Compute(twoSumRenamed)), 0.85)

	unrelated := Similarity(
		Compute("for i in range(10):\n    print(i)"),
		Compute("public class Main {\n  public static void main(String[] args) {\n    System.out.println(\"hello\");\n  }\n}"),
	)
	assert.Less(t, unrelated, 0.3)

	assert.Less(t, Similarity(Compute(twoSum), Compute(reverseJS)), 0.3)
}

func TestConcatAnswers(t *testing.T) {
	answers := []model.CodeAnswer{
		{QuestionID: "q3", Position: 3, Code: "third()"},
		{QuestionID: "q1", Position: 1, Code: "first()"},
		{QuestionID: "q2", Position: 2, Code: "   "},
	}
	assert.Equal(t, "first()\nthird()", ConcatAnswers(answers))
	assert.Equal(t, "", ConcatAnswers(nil))
}

func TestBestMatch(t *testing.T) {
	own := []int64{1, 2, 3, 4}
	peers := []repository.PeerFingerprint{
		{SubmissionID: "empty", Fingerprint: nil},
		{SubmissionID: "half", Fingerprint: []int64{1, 2, 9, 10}},
		{SubmissionID: "first-full", Fingerprint: []int64{1, 2, 3, 4}},
		{SubmissionID: "second-full", Fingerprint: []int64{4, 3, 2, 1}},
	}

	m := BestMatch(own, peers)
	assert.Equal(t, "first-full", m.PeerID)
	assert.Equal(t, 1.0, m.Similarity)

	none := BestMatch(own, peers[:1])
	assert.Equal(t, "", none.PeerID)
	assert.Zero(t, none.Similarity)
}
