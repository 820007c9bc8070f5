package ingest

import "strings"

// splitByRunes 按 rune 数切分文本，相邻块之间保留 overlapRunes 的重叠，
// 避免法条或判例段落在块边界被硬切断语义。
func splitByRunes(s string, maxRunes, overlapRunes int) []string {
	text := strings.TrimSpace(s)
	if text == "" {
		return nil
	}
	if maxRunes <= 0 {
		return []string{text}
	}

	runes := []rune(text)
	if len(runes) <= maxRunes {
		return []string{text}
	}

	if overlapRunes < 0 {
		overlapRunes = 0
	}
	step := maxRunes - overlapRunes
	if step <= 0 {
		// 重叠不小于块长时退化为不重叠切分
		step = maxRunes
	}

	var chunks []string
	start := 0
	for {
		end := start + maxRunes
		if end > len(runes) {
			end = len(runes)
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			return chunks
		}
		start += step
	}
}
