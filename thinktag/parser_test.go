package thinktag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocessHoldsBackPartialTag(t *testing.T) {
	p := New()
	out := p.Preprocess("hello <th")
	assert.Equal(t, "hello ", out)

	out = p.Preprocess("ink>reasoning</think>after")
	assert.Equal(t, "<think>reasoning</think>after", out)
}

func TestPreprocessSplitAcrossManyChunks(t *testing.T) {
	p := New()
	full := "before<think>mid</think>after"
	var got string
	for _, b := range []byte(full) {
		got += p.Preprocess(string(b))
	}
	got += p.Preprocess("")
	// trailing buffer flushed manually since Preprocess never force-flushes on its own
	got += p.buffer
	assert.Equal(t, full, got)
}

func TestPreprocessUnicodeBoundarySafe(t *testing.T) {
	p := New()
	out := p.Preprocess("caf\xc3")
	assert.Equal(t, "caf", out)
	out = p.Preprocess("\xa9 done")
	assert.Equal(t, "\xc3\xa9 done", out)
}

func TestCleanBeforeStripsRepeatedOpenTags(t *testing.T) {
	p := New()
	require.True(t, p.IsThinkingAllowed())
	got := p.CleanBefore("  <think>  <cot>text")
	assert.Equal(t, "text", got)
}

func TestCleanAfterStripsRepeatedCloseTags(t *testing.T) {
	p := New()
	got := p.CleanAfter("  </think>  <end_cot>text")
	assert.Equal(t, "text", got)
}

func TestOnThinkEndLatchesDisabledWithoutReentry(t *testing.T) {
	p := New()
	p.OnThinkEnd()
	assert.False(t, p.IsThinkingAllowed())
	assert.Equal(t, "raw<think>", p.CleanBefore("raw<think>"))
}
