// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package core

import "strings"

// SummarizeText shortens text to approximately maxTokens by dropping
// trailing words, proportional to the token overrun.
func SummarizeText(text string, maxTokens int, tokenCounter TokenCounter) string {
	if text == "" {
		return ""
	}

	currentTokens := tokenCounter.CountTokens(text)
	if currentTokens <= maxTokens {
		return text
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	targetWords := len(words) * maxTokens / currentTokens
	if targetWords > len(words) {
		targetWords = len(words)
	}

	summary := strings.Join(words[:targetWords], " ")
	if targetWords < len(words) {
		summary += "..."
	}
	return summary
}

// TruncateText trims text to fit within maxTokens via a binary search over
// word count, the exact trim point rather than SummarizeText's ratio
// estimate.
func TruncateText(text string, maxTokens int, tokenCounter TokenCounter) string {
	if text == "" || maxTokens <= 0 {
		return ""
	}

	if tokenCounter.CountTokens(text) <= maxTokens {
		return text
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	low, high := 0, len(words)
	for low < high {
		mid := (low + high + 1) / 2
		testText := strings.Join(words[:mid], " ")
		if tokenCounter.CountTokens(testText) <= maxTokens {
			low = mid
		} else {
			high = mid - 1
		}
	}

	result := strings.Join(words[:low], " ")
	if low < len(words) {
		result += "..."
	}
	return result
}
