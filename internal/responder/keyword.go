// Package responder contains answer generators for the chat service.
// The real deployment plugs a retrieval-augmented pipeline in behind
// services.Responder; Keyword is a self-contained extractive stand-in
// that picks the document sentence sharing the most terms with the
// question.
package responder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"

	"docchat/internal/models"
)

const fallbackAnswer = "I couldn't find anything about that in the document."

// Keyword answers questions by term overlap against the uploaded document.
type Keyword struct{}

func NewKeyword() *Keyword {
	return &Keyword{}
}

// Answer scans the stored document and returns the sentence with the
// highest term overlap with the question, or a fallback when nothing
// overlaps. History is unused here; a real pipeline would condition on it.
func (k *Keyword) Answer(ctx context.Context, documentPath, question string, _ []models.ChatEntry) (string, error) {
	terms := termSet(question)
	if len(terms) == 0 {
		return fallbackAnswer, nil
	}

	f, err := os.Open(documentPath)
	if err != nil {
		return "", fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	best := ""
	bestScore := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		for _, sentence := range splitSentences(scanner.Text()) {
			score := overlap(terms, sentence)
			if score > bestScore {
				bestScore = score
				best = sentence
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}

	if bestScore == 0 {
		return fallbackAnswer, nil
	}
	return best, nil
}

// stopwords excluded from term matching; question words score nothing.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "about": true,
	"how": true, "in": true, "is": true, "it": true, "of": true,
	"on": true, "or": true, "the": true, "to": true, "what": true,
	"when": true, "where": true, "which": true, "who": true, "why": true,
}

func termSet(text string) map[string]bool {
	terms := make(map[string]bool)
	for _, w := range tokenize(text) {
		if !stopwords[w] {
			terms[w] = true
		}
	}
	return terms
}

func overlap(terms map[string]bool, sentence string) int {
	score := 0
	seen := make(map[string]bool)
	for _, w := range tokenize(sentence) {
		if terms[w] && !seen[w] {
			seen[w] = true
			score++
		}
	}
	return score
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func splitSentences(line string) []string {
	var out []string
	start := 0
	for i, r := range line {
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(line[start : i+1]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(line[start:]); s != "" {
		out = append(out, s)
	}
	return out
}
