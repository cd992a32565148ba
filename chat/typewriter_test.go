package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypewriterReassemblesText(t *testing.T) {
	ch := Typewriter(context.Background(), "the quick  brown\nfox", 0)

	var sb strings.Builder
	var sawDone bool
	for delta := range ch {
		require.NoError(t, delta.Error)
		sb.WriteString(delta.Content)
		if delta.Done {
			sawDone = true
		}
	}

	assert.True(t, sawDone, "stream must terminate with a done delta")
	// Whitespace runs collapse to single spaces; that is the cost of the
	// word split and matches the cosmetic intent.
	assert.Equal(t, "the quick brown fox", sb.String())
}

func TestTypewriterEmitsWordPerDelta(t *testing.T) {
	ch := Typewriter(context.Background(), "one two three", 0)

	var chunks []string
	for delta := range ch {
		if delta.Content != "" {
			chunks = append(chunks, delta.Content)
		}
	}

	assert.Equal(t, []string{"one ", "two ", "three"}, chunks)
}

func TestTypewriterEmptyText(t *testing.T) {
	ch := Typewriter(context.Background(), "   ", 0)

	var deltas int
	var sawDone bool
	for delta := range ch {
		deltas++
		sawDone = delta.Done
	}

	assert.Equal(t, 1, deltas, "empty text yields only the done delta")
	assert.True(t, sawDone)
}

func TestTypewriterDelayPacesOutput(t *testing.T) {
	const delay = 20 * time.Millisecond

	start := time.Now()
	ch := Typewriter(context.Background(), "a b c d e", delay)
	for range ch {
	}
	elapsed := time.Since(start)

	// Four gaps between five words.
	assert.GreaterOrEqual(t, elapsed, 4*delay)
}

func TestTypewriterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	ch := Typewriter(ctx, "one two three four five six", 50*time.Millisecond)

	// Read one word, then walk away.
	<-ch
	cancel()

	deadline := time.After(time.Second)
	var last error
	for {
		select {
		case delta, ok := <-ch:
			if !ok {
				assert.ErrorIs(t, last, context.Canceled)
				return
			}
			if delta.Error != nil {
				last = delta.Error
			}
		case <-deadline:
			t.Fatal("typewriter did not terminate after cancellation")
		}
	}
}
