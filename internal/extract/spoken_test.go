package extract_test

import (
	"testing"

	"github.com/xpandai03/inbot-ai-sub000/internal/extract"
)

func TestNormalizeSpokenNumbers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare digit words concatenate positionally",
			in:   "five four eight four Oak Drive",
			want: "5484 Oak Drive",
		},
		{
			name: "compound grouping",
			in:   "eleven twenty two Main Street",
			want: "1122 Main Street",
		},
		{
			name: "single tens word",
			in:   "forty Main Street",
			want: "40 Main Street",
		},
		{
			name: "tens and ones merge",
			in:   "twenty two Baker Street",
			want: "22 Baker Street",
		},
		{
			name: "multiplier scales the running group",
			in:   "two hundred Elm Avenue",
			want: "200 Elm Avenue",
		},
		{
			name: "teen then tens then ones",
			in:   "nineteen fifty five Sunset Boulevard",
			want: "1955 Sunset Boulevard",
		},
		{
			name: "no number words returns input unchanged",
			in:   "Main Street by the park",
			want: "Main Street by the park",
		},
		{
			name: "already numeric returns input unchanged",
			in:   "5484 Oak Drive",
			want: "5484 Oak Drive",
		},
		{
			name: "street type stops the scan",
			in:   "five Street Road",
			want: "5 Street Road",
		},
		{
			name: "oh spoken as zero",
			in:   "four oh seven Pine Lane",
			want: "407 Pine Lane",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := extract.NormalizeSpokenNumbers(tt.in)
			if got != tt.want {
				t.Fatalf("NormalizeSpokenNumbers(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
