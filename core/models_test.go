package core

import (
	"encoding/json"
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantSame bool
	}{
		{
			name:     "same content produces same ID",
			content:  "corpus.csv|embeddings.jsonl",
			wantSame: true,
		},
		{
			name:     "empty string",
			content:  "",
			wantSame: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if tt.wantSame && id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestDataset_Append(t *testing.T) {
	d := NewDataset(2)
	if d.Len() != 0 || d.Dim() != 0 {
		t.Fatalf("new dataset should be empty, got len=%d dim=%d", d.Len(), d.Dim())
	}

	d.Append(&EmbeddingRecord{Embedding: []float32{0.1, 0.2, 0.3}, Label: LabelSpam})
	d.Append(&EmbeddingRecord{Embedding: []float32{0.4, 0.5, 0.6}, Label: LabelHam})

	if d.Len() != 2 {
		t.Errorf("Len() = %d, want 2", d.Len())
	}
	if d.Dim() != 3 {
		t.Errorf("Dim() = %d, want 3", d.Dim())
	}
	if d.Labels[0] != LabelSpam || d.Labels[1] != LabelHam {
		t.Errorf("labels not aligned with insertion order: %v", d.Labels)
	}
}

func TestDataset_NilLen(t *testing.T) {
	var d *Dataset
	if d.Len() != 0 {
		t.Errorf("nil dataset Len() = %d, want 0", d.Len())
	}
}

func TestEmbeddingRecord_JSONShape(t *testing.T) {
	record := EmbeddingRecord{Embedding: []float32{0.5, -1.25}, Label: 1}
	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	// Text is omitted when empty so the line matches the flat schema exactly.
	want := `{"embedding":[0.5,-1.25],"label":1}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}
