package llm

import "strings"

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// ThinkBlockFilter filters out <think>...</think> blocks from streaming content.
// Tags may be split across chunks; a possible partial tag is held back until
// the next chunk decides it.
type ThinkBlockFilter struct {
	inThinkBlock bool
	pending      string
}

// ProcessChunk processes a chunk of streaming content, filtering think blocks
func (f *ThinkBlockFilter) ProcessChunk(chunk string) (filtered string, isThinking bool) {
	var output strings.Builder
	buf := f.pending + chunk
	f.pending = ""

	for buf != "" {
		tag := thinkOpen
		if f.inThinkBlock {
			tag = thinkClose
		}

		if i := strings.Index(buf, tag); i >= 0 {
			if !f.inThinkBlock {
				output.WriteString(buf[:i])
			}
			buf = buf[i+len(tag):]
			f.inThinkBlock = !f.inThinkBlock
			continue
		}

		// Hold back a suffix that could still grow into the tag
		keep := partialSuffix(buf, tag)
		if !f.inThinkBlock {
			output.WriteString(buf[:len(buf)-keep])
		}
		f.pending = buf[len(buf)-keep:]
		break
	}

	return output.String(), f.inThinkBlock
}

// Flush returns held-back text once the stream has ended
func (f *ThinkBlockFilter) Flush() string {
	rest := f.pending
	f.pending = ""
	if f.inThinkBlock {
		return ""
	}
	return rest
}

// partialSuffix reports the length of the longest suffix of s that is a
// proper prefix of tag
func partialSuffix(s, tag string) int {
	for n := min(len(s), len(tag)-1); n > 0; n-- {
		if strings.HasSuffix(s, tag[:n]) {
			return n
		}
	}
	return 0
}
