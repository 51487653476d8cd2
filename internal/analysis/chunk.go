package analysis

import "strings"

// splitChunks splits text into pieces no longer than limit, preferring
// paragraph boundaries. A single paragraph longer than the limit is cut
// hard at the limit.
func splitChunks(text string, limit int) []string {
	paragraphs := strings.Split(text, "\n\n")

	var chunks []string
	var current strings.Builder
	for _, para := range paragraphs {
		for len(para) > limit {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			chunks = append(chunks, para[:limit])
			para = para[limit:]
		}
		if para == "" {
			continue
		}
		need := len(para)
		if current.Len() > 0 {
			need += 2
		}
		if current.Len()+need > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
