// Package markdown cleans vision-model output: code-fence wrappers around
// the generated document and escaped line endings that some models emit as
// literal two-character sequences.
package markdown

import "strings"

const (
	openingFence = "```markdown"
	closingFence = "```"
)

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize prepares content for download: literal escaped line endings
// become real newlines and one surrounding markdown fence is removed.
// Idempotent: normalizing already-normalized text is a no-op.
func (n *Normalizer) Normalize(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	out := strings.ReplaceAll(text, `\r\n`, "\n")
	out = strings.ReplaceAll(out, `\n`, "\n")
	return n.StripFences(out)
}

// StripFences removes a leading ```markdown fence and a trailing ``` fence
// when they sit at the exact start and end of the content. Fences inside
// the document body are left alone.
func (n *Normalizer) StripFences(text string) string {
	out := text
	if strings.HasPrefix(out, openingFence) {
		out = strings.TrimPrefix(out, openingFence)
		out = strings.TrimPrefix(out, "\n")
	}
	if strings.HasSuffix(out, closingFence) {
		out = strings.TrimSuffix(out, closingFence)
		out = strings.TrimSuffix(out, "\n")
	}
	return out
}
