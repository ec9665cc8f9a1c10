package captioning

import "strings"

// TriggerSeparator joins a trigger token to its caption
const TriggerSeparator = ". "

// Finalize applies the length policy and trigger prefix to a model caption.
// A caption that already carries the trigger prefix is not prefixed again,
// so Finalize is idempotent for fixed options.
func Finalize(raw string, opts GenerationOptions) string {
	trigger := opts.TriggerToken()
	prefix := ""
	body := raw
	if trigger != "" {
		prefix = trigger + TriggerSeparator
		body = strings.TrimPrefix(body, prefix)
	}

	if limit := WordBudget(opts.Length); limit > 0 {
		body = truncateWords(body, limit)
	}

	return prefix + body
}

// truncateWords keeps the first n words. Text within the budget is returned
// unchanged.
func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ")
}
