package vectorstore

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/TubeSage/internal/models"
)

// streamChunk splits each document's text into token-bounded chunks
// with optional overlap and emits them downstream. Positions restart at
// zero per document.
func (s *Store) streamChunk(
	ctx context.Context,
	g *errgroup.Group,
	docs []models.Document,
) <-chan chunk {
	out := make(chan chunk, 8)

	g.Go(func() error {
		defer close(out)

		for _, doc := range docs {
			meta := doc.Metadata
			var (
				buf    []string
				tokSum int
				pos    int
			)

			// flush emits the current buffer as a chunk and seeds the
			// next one with an overlapTokens-sized tail.
			flush := func() error {
				if tokSum == 0 {
					return nil
				}
				c := chunk{
					VideoID:      meta["video_id"],
					VideoTitle:   meta["video_title"],
					ChannelTitle: meta["channel_title"],
					Pos:          pos,
					Text:         strings.Join(buf, "\n"),
					TokenCnt:     tokSum,
				}
				pos++

				select {
				case out <- c:
				case <-ctx.Done():
					return ctx.Err()
				}

				if s.cfg.OverlapTokens > 0 {
					keep := []string{}
					remain := s.cfg.OverlapTokens
					for j := len(buf) - 1; j >= 0 && remain > 0; j-- {
						keep = append([]string{buf[j]}, keep...)
						remain -= approxTokens(buf[j])
					}
					buf = keep
					tokSum = 0
					for _, line := range buf {
						tokSum += approxTokens(line)
					}
				} else {
					buf = buf[:0]
					tokSum = 0
				}
				return nil
			}

			for _, line := range strings.Split(doc.Text, "\n") {
				if line = strings.TrimSpace(line); line == "" {
					continue
				}
				buf = append(buf, line)
				tokSum += approxTokens(line)

				if tokSum >= s.cfg.ChunkTokens {
					if err := flush(); err != nil {
						return err
					}
				}
			}

			// Tail of the document. Skip when it is pure overlap of an
			// already emitted chunk.
			if pos == 0 || tokSum > s.cfg.OverlapTokens {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return nil
	})

	return out
}

// approxTokens is a cheap token estimator (~4 chars per token).
func approxTokens(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}
