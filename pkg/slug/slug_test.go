package slug

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	assert.Equal(t, "general-chat", Make("General Chat"))
	assert.Equal(t, "hello-world", Make("  Hello,   World! "))
	assert.Equal(t, "room-42", Make("Room #42"))
	assert.Equal(t, "", Make("!!!"))
	assert.Equal(t, "abc", Make("ABC"))
}

func TestWithSuffix(t *testing.T) {
	s := WithSuffix("General Chat")
	require.True(t, strings.HasPrefix(s, "general-chat-"))
	assert.Len(t, s, len("general-chat-")+6)

	// Empty base still yields a non-empty slug.
	empty := WithSuffix("???")
	assert.Len(t, empty, 6)
}

func TestWithSuffixUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := WithSuffix("room")
		require.False(t, seen[s], "duplicate slug %q", s)
		seen[s] = true
	}
}
