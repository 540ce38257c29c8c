package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/spamsense/core"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()

	a, err := m.EmbedText(context.Background(), "win a prize")
	if err != nil {
		t.Fatalf("EmbedText failed: %v", err)
	}
	b, err := m.EmbedText(context.Background(), "win a prize")
	if err != nil {
		t.Fatalf("EmbedText failed: %v", err)
	}

	if len(a) != DefaultDim {
		t.Fatalf("expected dim %d, got %d", DefaultDim, len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at %d: %v != %v", i, a[i], b[i])
		}
	}
	if m.CallCount() != 2 {
		t.Errorf("expected 2 calls, got %d", m.CallCount())
	}
}

func TestMockEmbedder_EmptyText(t *testing.T) {
	m := NewMockEmbedder()
	_, err := m.EmbedText(context.Background(), "")
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMockEmbedder_EmbedTextsRecordsOrder(t *testing.T) {
	m := NewMockEmbedder().WithDim(3)

	vectors, err := m.EmbedTexts(context.Background(), []string{"x", "y"})
	if err != nil {
		t.Fatalf("EmbedTexts failed: %v", err)
	}
	if len(vectors) != 2 || len(vectors[0]) != 3 {
		t.Fatalf("unexpected shape: %v", vectors)
	}

	texts := m.Texts()
	if len(texts) != 2 || texts[0] != "x" || texts[1] != "y" {
		t.Errorf("unexpected recorded texts: %v", texts)
	}

	m.Reset()
	if m.CallCount() != 0 || len(m.Texts()) != 0 {
		t.Error("Reset did not clear state")
	}
}
