package textsplit

import "unicode"

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200

	// How far back from a hard cut we are willing to look for a natural
	// boundary before giving up and cutting mid-word.
	boundaryWindow = 100
)

// Split breaks a long string into chunks of approximately chunkSize
// characters with 'overlap' characters shared between adjacent chunks so
// context survives the boundary. Cuts prefer paragraph breaks, then line
// breaks, then whitespace; only when none appear within the window does a
// chunk end mid-word.
func Split(text string, chunkSize int, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}

	runes := []rune(text)
	totalLen := len(runes)
	if totalLen <= chunkSize {
		return []string{text}
	}

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize // fallback if overlap >= chunkSize
	}

	var chunks []string
	for i := 0; i < totalLen; {
		end := i + chunkSize
		if end >= totalLen {
			chunks = append(chunks, string(runes[i:totalLen]))
			break
		}

		end = snapToBoundary(runes, i, end)
		chunks = append(chunks, string(runes[i:end]))

		next := end - overlap
		if next <= i {
			next = i + step
		}
		i = next
	}

	return chunks
}

// snapToBoundary walks back from the hard cut looking for the best break
// point: a blank line, then a newline, then any whitespace.
func snapToBoundary(runes []rune, start, end int) int {
	limit := end - boundaryWindow
	if limit < start+1 {
		limit = start + 1
	}

	newlineAt, spaceAt := -1, -1
	for j := end; j > limit; j-- {
		r := runes[j-1]
		if r == '\n' {
			// Blank line wins immediately.
			if j >= 2 && runes[j-2] == '\n' {
				return j
			}
			if newlineAt == -1 {
				newlineAt = j
			}
		} else if unicode.IsSpace(r) && spaceAt == -1 {
			spaceAt = j
		}
	}

	if newlineAt != -1 {
		return newlineAt
	}
	if spaceAt != -1 {
		return spaceAt
	}
	return end
}
