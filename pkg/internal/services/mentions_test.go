package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMentions(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "plain text has no mentions",
			content: "just shipping the release notes",
			want:    nil,
		},
		{
			name:    "single mention",
			content: "hey @joan can you review this",
			want:    []string{"joan"},
		},
		{
			name:    "trailing punctuation is stripped",
			content: "ping @joan, and @omar!",
			want:    []string{"joan", "omar"},
		},
		{
			name:    "duplicates collapse keeping first order",
			content: "@omar @joan @omar @joan",
			want:    []string{"omar", "joan"},
		},
		{
			name:    "everyone is an ordinary token here",
			content: "@everyone standup in five",
			want:    []string{"everyone"},
		},
		{
			name:    "single character names are skipped",
			content: "@a @ab",
			want:    []string{"ab"},
		},
		{
			name:    "overlong names are skipped",
			content: "@" + strings.Repeat("x", 33) + " @ok",
			want:    []string{"ok"},
		},
		{
			name:    "bare at sign is skipped",
			content: "meet @ noon with @joan",
			want:    []string{"joan"},
		},
		{
			name:    "email-like text in the middle of a word is not a mention",
			content: "mail me at joan@example.com",
			want:    nil,
		},
		{
			name:    "casing is preserved",
			content: "@Joan said so",
			want:    []string{"Joan"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractMentions(tc.content))
		})
	}
}
