package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/spamsense/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestReadCSV(t *testing.T) {
	path := writeCSV(t, `id,text,label
1,"Lose up to 19% weight. Special promotion on our new weightloss.",1
2,"Hi Bob, can you send me your machine learning homework?",0
3,"multi
line",spam
4,,ham
5,"bad label",maybe
`)

	items, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Equal(t, core.LabeledText{Text: "Lose up to 19% weight. Special promotion on our new weightloss.", Label: 1}, items[0])
	assert.Equal(t, core.LabeledText{Text: "Hi Bob, can you send me your machine learning homework?", Label: 0}, items[1])
	assert.Equal(t, "multi\nline", items[2].Text)
	assert.Equal(t, core.LabelSpam, items[2].Label)
	assert.Equal(t, core.LabeledText{Text: "", Label: core.LabelHam}, items[3])
}

func TestReadCSV_Missing(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, core.ErrIOFailure)
}

func TestReadAll_KeepsOrder(t *testing.T) {
	a := writeCSV(t, "text,label\nfirst,1\n")
	b := writeCSV(t, "text,label\nsecond,0\nthird,1\n")

	items, err := ReadAll(a, b)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "first", items[0].Text)
	assert.Equal(t, "second", items[1].Text)
	assert.Equal(t, "third", items[2].Text)
}

func TestParseLabel(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"1", 1, false},
		{" 0 ", 0, false},
		{"0.25", 0.25, false},
		{"SPAM", 1, false},
		{"ham", 0, false},
		{"", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
		{"yes", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLabel(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
