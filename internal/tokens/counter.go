// Package tokens estimates prompt sizes so conversation history can be
// trimmed to a budget before it reaches the model.
package tokens

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Counter counts tokens for prompt text. Groq's mixtral models use their
// own tokenizer, but cl100k_base tracks it closely enough for budgeting.
type Counter struct {
	once  sync.Once
	codec tokenizer.Codec
}

func NewCounter() *Counter {
	return &Counter{}
}

// Count returns the token count for text. When the tokenizer cannot be
// loaded it falls back to a bytes/4 heuristic rather than failing, since
// an estimate is all budgeting needs.
func (c *Counter) Count(text string) int {
	c.once.Do(func() {
		codec, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err == nil {
			c.codec = codec
		}
	})

	if c.codec != nil {
		if ids, _, err := c.codec.Encode(text); err == nil {
			return len(ids)
		}
	}
	return estimate(text)
}

func estimate(text string) int {
	if text == "" {
		return 0
	}
	return len(text)/4 + 1
}
