package discordlog

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withoutSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func assertChunks(t *testing.T, text string, max int, chunks []string) {
	t.Helper()
	if joined := strings.Join(chunks, ""); joined != text {
		// Only whitespace-only pieces may be dropped.
		assert.Equal(t, withoutSpace(text), withoutSpace(joined), "chunks must reassemble the text")
		assert.Less(t, len(joined), len(text))
	}
	for i, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c), "chunk %d is blank", i)
		assert.True(t, utf8.ValidString(c) || !utf8.ValidString(text), "chunk %d split a rune", i)
		assert.LessOrEqual(t, utf8.RuneCountInString(c), max, "chunk %d too long", i)
	}
}

func TestSplit_Short(t *testing.T) {
	chunks := Split("hello", MaxMessageLength)
	assert.Equal(t, []string{"hello"}, chunks)
}

func TestSplit_Empty(t *testing.T) {
	assert.Nil(t, Split("", MaxMessageLength))
}

func TestSplit_ExactLimit(t *testing.T) {
	text := strings.Repeat("a", MaxMessageLength)
	chunks := Split(text, MaxMessageLength)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplit_HardCut(t *testing.T) {
	text := strings.Repeat("x", 5000)
	chunks := Split(text, MaxMessageLength)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 2000)
	assert.Len(t, chunks[1], 2000)
	assert.Len(t, chunks[2], 1000)
}

func TestSplit_PrefersNewline(t *testing.T) {
	text := "first line\nsecond line that is long"
	chunks := Split(text, 20)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "first line\n", chunks[0])
	assertChunks(t, text, 20, chunks)
}

func TestSplit_PrefersWhitespace(t *testing.T) {
	text := "alpha beta gamma delta"
	chunks := Split(text, 12)
	assert.Equal(t, []string{"alpha beta ", "gamma delta"}, chunks)
}

func TestSplit_Multibyte(t *testing.T) {
	text := strings.Repeat("é", 3000) + strings.Repeat("日本", 700)
	chunks := Split(text, MaxMessageLength)
	require.Len(t, chunks, 3)
	assertChunks(t, text, MaxMessageLength, chunks)
}

func TestSplit_DefaultMax(t *testing.T) {
	chunks := Split(strings.Repeat("y", 2500), 0)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], MaxMessageLength)
}

func TestSplit_Randomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []string{"a", "b", "ü", "語", "🙂", " ", "\n", "\t", "word", "longerword"}

	for iter := 0; iter < 200; iter++ {
		var b strings.Builder
		n := rng.Intn(6000)
		for b.Len() < n {
			b.WriteString(alphabet[rng.Intn(len(alphabet))])
		}
		text := b.String()
		max := 1 + rng.Intn(2500)

		chunks := Split(text, max)
		if strings.TrimSpace(text) == "" {
			assert.Empty(t, chunks)
			continue
		}
		assertChunks(t, text, max, chunks)
		if utf8.RuneCountInString(text) <= max {
			assert.Len(t, chunks, 1)
		}
	}
}

func TestSplit_TrailingWhitespaceRun(t *testing.T) {
	text := "[ERROR] app: trace" + strings.Repeat("\n", 2500)
	chunks := Split(text, MaxMessageLength)

	require.Len(t, chunks, 1)
	assert.True(t, strings.HasPrefix(chunks[0], "[ERROR] app: trace\n"))
	assertChunks(t, text, MaxMessageLength, chunks)
}

func TestSplit_BlankPieceFoldsIntoPreviousChunk(t *testing.T) {
	text := "ab\n  " + strings.Repeat("z", 20)
	chunks := Split(text, 8)

	assert.Equal(t, []string{"ab\n  ", "zzzzzzzz", "zzzzzzzz", "zzzz"}, chunks)
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplit_LeadingBlankRunDropped(t *testing.T) {
	text := strings.Repeat("\n", 30) + "payload"
	chunks := Split(text, 10)

	assert.Equal(t, []string{"payload"}, chunks)
}

func TestSplit_BlankText(t *testing.T) {
	assert.Nil(t, Split("  \n\t ", MaxMessageLength))
	assert.Nil(t, Split(strings.Repeat("\n", 5000), MaxMessageLength))
}
