package utils

// SplitText splits a long string into chunks of roughly chunkSize characters
// with an overlap to preserve context at chunk boundaries. Character-based,
// rune-safe; short input comes back as a single chunk.
func SplitText(text string, chunkSize int, overlap int) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	totalLen := len(runes)

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize
	}

	for i := 0; i < totalLen; i += step {
		end := i + chunkSize
		if end > totalLen {
			end = totalLen
		}

		chunks = append(chunks, string(runes[i:end]))

		if end == totalLen {
			break
		}
	}

	return chunks
}
