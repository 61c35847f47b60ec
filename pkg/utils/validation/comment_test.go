package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateComment(t *testing.T) {
	body, err := ValidateComment("  Great video, thanks!  ")
	require.NoError(t, err)
	assert.Equal(t, "Great video, thanks!", body)

	_, err = ValidateComment("அருமை! நன்றி")
	assert.NoError(t, err)

	_, err = ValidateComment("   ")
	assert.ErrorIs(t, err, ErrCommentEmpty)

	_, err = ValidateComment(strings.Repeat("a", MaxCommentLength+1))
	assert.ErrorIs(t, err, ErrCommentTooLong)

	_, err = ValidateComment(strings.Repeat("é", MaxCommentLength))
	assert.NoError(t, err)

	for _, bad := range []string{"<script>", "hi $$$", "a{b}", "emoji 😀"} {
		_, err = ValidateComment(bad)
		assert.ErrorIs(t, err, ErrCommentSpecial, bad)
	}
}
