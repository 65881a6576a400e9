package extract

import (
	"reflect"
	"testing"
)

func TestParseClaimList(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		want       []string
		wantParsed bool
	}{
		{
			name:       "json array",
			input:      `["We expect 50% growth", "Cybertruck delivery in Q3"]`,
			want:       []string{"We expect 50% growth", "Cybertruck delivery in Q3"},
			wantParsed: true,
		},
		{
			name:       "python single quotes",
			input:      `['Revenue of $10B', "Margins at 40%"]`,
			want:       []string{"Revenue of $10B", "Margins at 40%"},
			wantParsed: true,
		},
		{
			name:       "python escaped quote",
			input:      `['We\'ll double output', ]`,
			want:       []string{"We'll double output"},
			wantParsed: true,
		},
		{
			name:       "fenced python",
			input:      "```python\n['A', 'B']\n```",
			want:       []string{"A", "B"},
			wantParsed: true,
		},
		{
			name:       "fenced json inline tag",
			input:      "```json[\"A\"]```",
			want:       []string{"A"},
			wantParsed: true,
		},
		{
			name:       "fenced with prose around",
			input:      "Here are the claims:\n```\n[\"A\"]\n```\nLet me know.",
			want:       []string{"A"},
			wantParsed: true,
		},
		{
			name:       "json object",
			input:      `{"claims": ["A", "B"]}`,
			want:       []string{"A", "B"},
			wantParsed: true,
		},
		{
			name:       "json object other key",
			input:      `{"statements": ["A"]}`,
			want:       []string{"A"},
			wantParsed: true,
		},
		{
			name:       "non-string elements",
			input:      `["A", 42]`,
			want:       []string{"A", "42"},
			wantParsed: true,
		},
		{
			name:       "prose fallback",
			input:      "  The company promises growth.  ",
			want:       []string{"The company promises growth."},
			wantParsed: false,
		},
		{
			name:       "broken list fallback",
			input:      `['unterminated`,
			want:       []string{`['unterminated`},
			wantParsed: false,
		},
		{
			name:       "empty",
			input:      "   ",
			want:       nil,
			wantParsed: false,
		},
		{
			name:       "empty list",
			input:      "[]",
			want:       []string{},
			wantParsed: true,
		},
		{
			name:       "json null",
			input:      "null",
			want:       []string{"null"},
			wantParsed: false,
		},
		{
			name:       "null claims key",
			input:      `{"claims": null}`,
			want:       []string{`{"claims": null}`},
			wantParsed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, parsed := ParseClaimList(tt.input)
			if parsed != tt.wantParsed {
				t.Errorf("parsed = %v, want %v", parsed, tt.wantParsed)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestCleanResponse(t *testing.T) {
	if got := CleanResponse("```\n['x']\n```"); got != "['x']" {
		t.Errorf("got %q", got)
	}
	if got := CleanResponse("  plain  "); got != "plain" {
		t.Errorf("got %q", got)
	}
}
