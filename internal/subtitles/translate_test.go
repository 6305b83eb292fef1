package subtitles

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/clipforge/clipd/internal/types"
)

type fakeCompleter struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeCompleter) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeCompleter) Name() string { return "fake" }

func TestTranslate_RewritesTextKeepsTiming(t *testing.T) {
	segs := []types.Segment{
		{Start: 0, End: 5, Text: "selamat datang"},
		{Start: 5, End: 9, Text: "sampai jumpa"},
	}
	fc := &fakeCompleter{reply: "1. welcome\n2. see you later\n"}

	out, err := Translate(context.Background(), fc, segs, "en")
	if err != nil {
		t.Fatal(err)
	}
	if out[0].Text != "welcome" || out[1].Text != "see you later" {
		t.Fatalf("texts not translated: %+v", out)
	}
	if out[0].Start != 0 || out[1].End != 9 {
		t.Fatalf("timing changed: %+v", out)
	}
	if segs[0].Text != "selamat datang" {
		t.Fatal("input slice was mutated")
	}
	if len(fc.prompts) != 1 || !strings.Contains(fc.prompts[0], "into en") {
		t.Fatalf("prompt missing target language: %q", fc.prompts)
	}
}

func TestTranslate_ToleratesProseAndSkippedLines(t *testing.T) {
	segs := []types.Segment{
		{Start: 0, End: 2, Text: "satu"},
		{Start: 2, End: 4, Text: "dua"},
		{Start: 4, End: 6, Text: "tiga"},
	}
	fc := &fakeCompleter{reply: "Here are the translations:\n1) one\n3) three\nHope that helps!"}

	out, err := Translate(context.Background(), fc, segs, "en")
	if err != nil {
		t.Fatal(err)
	}
	if out[0].Text != "one" || out[2].Text != "three" {
		t.Fatalf("numbered lines not applied: %+v", out)
	}
	// the skipped line keeps its source text
	if out[1].Text != "dua" {
		t.Fatalf("skipped line lost its text: %+v", out)
	}
}

func TestTranslate_Failures(t *testing.T) {
	segs := []types.Segment{{Start: 0, End: 2, Text: "halo"}}

	tests := []struct {
		name string
		fc   *fakeCompleter
	}{
		{"provider error", &fakeCompleter{err: errors.New("rate limited")}},
		{"no usable lines", &fakeCompleter{reply: "I cannot translate that."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Translate(context.Background(), tt.fc, segs, "en"); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestTranslate_NilProvider(t *testing.T) {
	segs := []types.Segment{{Start: 0, End: 2, Text: "halo"}}
	if _, err := Translate(context.Background(), nil, segs, "en"); err == nil {
		t.Fatal("expected an error without a provider")
	}
}
