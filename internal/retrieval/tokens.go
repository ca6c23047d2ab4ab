package retrieval

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// budgetEncoding is the shared BPE encoding used to measure assembled
// context against a token budget the same way the teacher's
// utils.TokenCounter measures prompt assembly — cl100k_base is the
// encoding shared by the completion models this cascade dispatches to.
var (
	budgetEncodingOnce sync.Once
	budgetEncoding     *tiktoken.Tiktoken
	budgetEncodingErr  error
)

func tokenEncoding() (*tiktoken.Tiktoken, error) {
	budgetEncodingOnce.Do(func() {
		budgetEncoding, budgetEncodingErr = tiktoken.GetEncoding("cl100k_base")
	})
	return budgetEncoding, budgetEncodingErr
}

// countTokens returns text's BPE token count, falling back to a rough
// chars-per-token estimate if the encoding failed to load.
func countTokens(text string) int {
	enc, err := tokenEncoding()
	if err != nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// truncateToTokens returns the longest prefix of text whose token count
// does not exceed budget, falling back to a chars-per-token estimate if
// the encoding failed to load.
func truncateToTokens(text string, budget int) string {
	enc, err := tokenEncoding()
	if err != nil {
		limit := budget * 4
		if len(text) > limit {
			return text[:limit]
		}
		return text
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}
	return enc.Decode(tokens[:budget])
}
