package extraction

import (
	"context"
	"errors"
	"testing"

	"resumebox/internal/database"
)

func TestExtract_EmptyBufferIsHardFailure(t *testing.T) {
	engine := NewPDFEngine(nil, nil)

	_, err := engine.Extract(context.Background(), nil, database.DefaultProcessingOptions())
	if !errors.Is(err, ErrUnreadablePDF) {
		t.Fatalf("expected ErrUnreadablePDF, got %v", err)
	}
}

func TestExtract_CorruptHeaderIsHardFailure(t *testing.T) {
	engine := NewPDFEngine(nil, nil)

	_, err := engine.Extract(context.Background(), []byte("this is not a pdf"), database.DefaultProcessingOptions())
	if !errors.Is(err, ErrUnreadablePDF) {
		t.Fatalf("expected ErrUnreadablePDF, got %v", err)
	}
}

func TestExtractContactHints(t *testing.T) {
	text := "Jane Doe\nSenior Gopher\njane.doe@example.com\n+1 (555) 123-4567\n"

	hints := ExtractContactHints(text)

	if hints.Name != "Jane Doe" {
		t.Errorf("name = %q, want %q", hints.Name, "Jane Doe")
	}
	if hints.Email != "jane.doe@example.com" {
		t.Errorf("email = %q, want %q", hints.Email, "jane.doe@example.com")
	}
	if hints.Phone != "+1 (555) 123-4567" {
		t.Errorf("phone = %q, want %q", hints.Phone, "+1 (555) 123-4567")
	}
}

func TestExtractContactHints_FirstLineIsEmail(t *testing.T) {
	hints := ExtractContactHints("jane@example.com\nJane Doe\n")

	if hints.Name != "" {
		t.Errorf("name = %q, want empty (first line is an email)", hints.Name)
	}
	if hints.Email != "jane@example.com" {
		t.Errorf("email = %q, want %q", hints.Email, "jane@example.com")
	}
}

func TestCountLines(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"one line", 1},
		{"a\nb\nc", 3},
		{"a\n\n\nb\n", 2},
	}
	for _, tc := range cases {
		if got := countLines(tc.text); got != tc.want {
			t.Errorf("countLines(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}
