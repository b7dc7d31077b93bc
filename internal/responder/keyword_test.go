package responder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeDoc(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing document: %v", err)
	}
	return path
}

func TestAnswerPicksBestSentence(t *testing.T) {
	doc := writeDoc(t, "Invoices are due in thirty days. Payment terms require a deposit before shipping. The warranty covers two years.")
	k := NewKeyword()

	answer, err := k.Answer(context.Background(), doc, "What are the payment terms?", nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer != "Payment terms require a deposit before shipping." {
		t.Errorf("answer = %q", answer)
	}
}

func TestAnswerFallbackWhenNothingMatches(t *testing.T) {
	doc := writeDoc(t, "Invoices are due in thirty days.")
	k := NewKeyword()

	answer, err := k.Answer(context.Background(), doc, "quantum entanglement?", nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer != fallbackAnswer {
		t.Errorf("answer = %q, want fallback", answer)
	}
}

func TestAnswerStopwordOnlyQuestion(t *testing.T) {
	doc := writeDoc(t, "The and of.")
	k := NewKeyword()

	answer, err := k.Answer(context.Background(), doc, "what is the", nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer != fallbackAnswer {
		t.Errorf("answer = %q, want fallback when every term is a stopword", answer)
	}
}

func TestAnswerMissingDocument(t *testing.T) {
	k := NewKeyword()
	if _, err := k.Answer(context.Background(), filepath.Join(t.TempDir(), "nope"), "terms?", nil); err == nil {
		t.Fatal("expected an error for a missing document")
	}
}

func TestAnswerCanceledContext(t *testing.T) {
	doc := writeDoc(t, "Some line.\nAnother line.")
	k := NewKeyword()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := k.Answer(ctx, doc, "line?", nil); err == nil {
		t.Fatal("expected a context error after cancellation")
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First one. Second one! Third?" + " trailing fragment")
	want := []string{"First one.", "Second one!", "Third?", "trailing fragment"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}
