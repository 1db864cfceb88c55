package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMentions(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"no mentions", "just a plain message", nil},
		{"single", "hey @alice look at this", []string{"alice"}},
		{"at start", "@alice morning", []string{"alice"}},
		{"multiple", "@alice and @bob should see this", []string{"alice", "bob"}},
		{"deduplicated in order", "@bob then @alice then @bob again", []string{"bob", "alice"}},
		{"punctuation boundary", "ping @alice, thanks!", []string{"alice"}},
		{"underscore and digits", "cc @dev_ops2", []string{"dev_ops2"}},
		{"too short", "an @a won't count", nil},
		{"bare at sign", "meet @ noon", nil},
		{"email-like, word char before at", "user@host is not a mention", nil},
		{"twenty char cap", "hi @abcdefghijklmnopqrstuvwxyz", []string{"abcdefghijklmnopqrst"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractMentions(tt.text))
		})
	}
}
