// Package budget estimates prompt sizes and trims content to fit them.
package budget

import (
	"fmt"
	"unicode/utf8"

	"github.com/hpungsan/rnupgrade/internal/session"
)

// TruncatedSuffix marks content cut to fit a character limit.
const TruncatedSuffix = "... (truncated)"

// EstimateTokens approximates the token count of text as a quarter of its
// character count. It is not a tokenizer; limits elsewhere are calibrated
// to this exact heuristic.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}

// Price is the per-1000-token rate of a model tier in dollars.
type Price struct {
	Prompt   float64
	Response float64
}

// DefaultModel is the tier used for unknown model names.
const DefaultModel = "gpt-4"

var prices = map[string]Price{
	DefaultModel: {Prompt: 0.03, Response: 0.06},
}

// PriceFor returns the rate for model, falling back to the default tier.
func PriceFor(model string) Price {
	if p, ok := prices[model]; ok {
		return p
	}
	return prices[DefaultModel]
}

// CostEstimate renders the dollar cost of a call, rounded to cents.
func CostEstimate(promptTokens, responseTokens int, model string) string {
	p := PriceFor(model)
	cost := float64(promptTokens)/1000*p.Prompt + float64(responseTokens)/1000*p.Response
	return fmt.Sprintf("$%.2f", cost)
}

// Truncate cuts text to limit characters and appends TruncatedSuffix when
// anything was removed. A non-positive limit disables truncation.
func Truncate(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + TruncatedSuffix
}

// SelectMessagesWithinBudget returns the contiguous tail of messages whose
// estimated size fits maxTokens. The scan runs backward from the newest
// message, ignoring system messages; the message that exhausts the budget is
// kept, and system messages inside the returned tail are kept as well.
func SelectMessagesWithinBudget(messages []session.Message, maxTokens int) []session.Message {
	cutoff := len(messages)
	total := 0
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == session.RoleSystem {
			continue
		}
		cutoff = i
		total += EstimateTokens(messages[i].Text())
		if total >= maxTokens {
			break
		}
	}
	return messages[cutoff:]
}

// SumTokens totals EstimateTokens over message contents.
func SumTokens(messages []session.Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateTokens(m.Text())
	}
	return total
}
