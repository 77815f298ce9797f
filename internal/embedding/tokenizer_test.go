package embedding

import "testing"

func TestSplitWords(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"hello world", []string{"hello", "world"}},
		{"  spaced\tout\nwords  ", []string{"spaced", "out", "words"}},
		{"", nil},
		{"single", []string{"single"}},
	}
	for _, tt := range tests {
		got := SplitWords(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("SplitWords(%q): expected %v, got %v", tt.input, tt.want, got)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("SplitWords(%q)[%d]: expected %q, got %q", tt.input, i, tt.want[i], got[i])
			}
		}
	}
}

func TestSimpleTokenizer(t *testing.T) {
	tok := &SimpleTokenizer{}
	inputIDs, attentionMask, tokenTypeIDs := tok.Tokenize("hello world", 8)

	if len(inputIDs) != 8 || len(attentionMask) != 8 || len(tokenTypeIDs) != 8 {
		t.Fatalf("all outputs must have maxTokens length, got %d/%d/%d",
			len(inputIDs), len(attentionMask), len(tokenTypeIDs))
	}
	if inputIDs[0] != 101 {
		t.Errorf("sequence must start with [CLS], got %d", inputIDs[0])
	}
	if inputIDs[3] != 102 {
		t.Errorf("expected [SEP] after the words, got %d", inputIDs[3])
	}
	for i := 0; i < 4; i++ {
		if attentionMask[i] != 1 {
			t.Errorf("attention mask position %d should be 1", i)
		}
	}
	for i := 4; i < 8; i++ {
		if attentionMask[i] != 0 {
			t.Errorf("padding position %d should be masked out", i)
		}
	}
}

func TestSimpleTokenizerTruncates(t *testing.T) {
	tok := &SimpleTokenizer{}
	text := ""
	for i := 0; i < 50; i++ {
		text += "word "
	}
	inputIDs, _, _ := tok.Tokenize(text, 10)
	if len(inputIDs) != 10 {
		t.Fatalf("expected 10 tokens, got %d", len(inputIDs))
	}
}

func TestHashStringDeterministicNonNegative(t *testing.T) {
	for _, s := range []string{"", "a", "hello", "日本語", "a much longer string to push the hash around"} {
		h := HashString(s)
		if h < 0 {
			t.Errorf("HashString(%q) negative: %d", s, h)
		}
		if h != HashString(s) {
			t.Errorf("HashString(%q) not deterministic", s)
		}
	}
}
