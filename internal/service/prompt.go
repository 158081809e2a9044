package service

import (
	"fmt"
	"strings"
)

const poemSystemPrompt = "You are a poet who writes short free-verse poems about walks. " +
	"Reply with the poem only, no title and no commentary."

func buildPoemPrompt(words []string) string {
	return fmt.Sprintf(
		"Write a poem of at most twelve lines that uses every one of these words, collected by people on a walk: %s",
		strings.Join(words, ", "),
	)
}

func cleanPoem(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("generation returned an empty poem")
	}
	return text, nil
}
