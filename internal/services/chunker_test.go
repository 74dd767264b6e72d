package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkTextRespectsMaxSize(t *testing.T) {
	chunker := NewTextChunker()
	text := strings.Repeat("Go developer with cloud experience. ", 200)

	chunks := chunker.ChunkText(text, 500, 50)

	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 600, "chunk %d too large", i)
	}
}

func TestChunkTextKeepsShortDocumentWhole(t *testing.T) {
	chunker := NewTextChunker()
	text := "Backend engineer.\n\nFive years of Go."

	chunks := chunker.ChunkText(text, DefaultChunkSize, DefaultChunkOverlap)

	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "Backend engineer.")
	assert.Contains(t, chunks[0], "Five years of Go.")
}

func TestChunkTextOverlapCarriesTail(t *testing.T) {
	chunker := NewTextChunker()
	paras := []string{
		strings.Repeat("a", 90),
		strings.Repeat("b", 90),
		strings.Repeat("c", 90),
	}
	text := strings.Join(paras, "\n\n")

	chunks := chunker.ChunkText(text, 100, 20)

	require.Greater(t, len(chunks), 1)
	// The start of each later chunk repeats the tail of its
	// predecessor.
	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1][len(chunks[i-1])-20:]
		assert.True(t, strings.HasPrefix(chunks[i], tail), "chunk %d missing overlap", i)
	}
}

func TestChunkTextEmptyInput(t *testing.T) {
	chunker := NewTextChunker()
	assert.Empty(t, chunker.ChunkText("", DefaultChunkSize, DefaultChunkOverlap))
	assert.Empty(t, chunker.ChunkText("\n\n\n\n", DefaultChunkSize, DefaultChunkOverlap))
}
