package chat

import (
	"fmt"
	"strings"

	"github.com/markdave123-py/TubeSage/internal/models"
)

const contextInstruction = `You are an assistant answering questions about a YouTube channel using excerpts from its video transcripts.
Answer only from the transcript excerpts below. If they do not contain the answer, say you don't know rather than guessing.
When it helps, mention which video an answer comes from.`

// systemPrompt renders the mode instruction plus the retrieved
// transcript excerpts, grouped under their video titles.
func systemPrompt(mode string, chunks []models.TranscriptChunk) string {
	var b strings.Builder
	// Only the context mode exists today; the stored mode keeps room
	// for alternatives without a schema change.
	_ = mode
	b.WriteString(contextInstruction)

	if len(chunks) == 0 {
		b.WriteString("\n\nNo transcript excerpts matched the question.")
		return b.String()
	}

	b.WriteString("\n\nTranscript excerpts:")
	for _, c := range chunks {
		fmt.Fprintf(&b, "\n\n[%s - %s]\n%s", c.ChannelTitle, c.VideoTitle, c.Text)
	}
	return b.String()
}
