package chat

import (
	"context"
	"strings"
	"time"

	"palaver/provider"
)

// DefaultStreamDelay is the fixed pause between re-emitted words.
const DefaultStreamDelay = 40 * time.Millisecond

// Typewriter re-emits a completed response word-by-word with a fixed
// delay, simulating a streaming reply. The text is split on whitespace;
// each chunk carries a trailing space except the last. The channel is
// closed after a final Done delta.
//
// This is cosmetic: the provider call has already returned in full.
func Typewriter(ctx context.Context, text string, delay time.Duration) <-chan provider.StreamDelta {
	ch := make(chan provider.StreamDelta, 16)

	go func() {
		defer close(ch)

		words := strings.Fields(text)
		for i, word := range words {
			chunk := word
			if i < len(words)-1 {
				chunk += " "
			}

			select {
			case ch <- provider.StreamDelta{Content: chunk}:
			case <-ctx.Done():
				abort(ch, ctx.Err())
				return
			}

			if delay > 0 && i < len(words)-1 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					abort(ch, ctx.Err())
					return
				}
			}
		}

		ch <- provider.StreamDelta{Done: true}
	}()

	return ch
}

// abort reports a cancelled stream without blocking on a consumer that
// already went away.
func abort(ch chan<- provider.StreamDelta, err error) {
	select {
	case ch <- provider.StreamDelta{Error: err, Done: true}:
	default:
	}
}
