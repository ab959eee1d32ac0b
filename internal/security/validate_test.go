package security

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiverlab/toolgate/internal/fault"
	"github.com/quiverlab/toolgate/internal/model/conversation"
)

func TestValidateTextEmpty(t *testing.T) {
	for _, v := range []string{"", "   ", "\n\t "} {
		err := ValidateText(v, "Prompt", 100)
		require.Error(t, err, "value %q", v)

		var verr *fault.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Error(), "cannot be empty")
	}
}

func TestValidateTextTooLong(t *testing.T) {
	err := ValidateText(strings.Repeat("a", 101), "Query", 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too long: 101 characters (max: 100)")
}

func TestValidateTextBoundaryInclusive(t *testing.T) {
	assert.NoError(t, ValidateText(strings.Repeat("a", 100), "Query", 100))
	assert.NoError(t, ValidateText("hello", "Query", 100))
}

func TestValidatePartsCount(t *testing.T) {
	parts := make([]conversation.Part, 5)
	for i := range parts {
		parts[i] = conversation.Part{Type: "text", Text: "x"}
	}
	require.Error(t, ValidateParts(parts, 4, 1024))
	assert.NoError(t, ValidateParts(parts, 5, 1024))
}

func TestValidatePartsInlineSize(t *testing.T) {
	big := base64.StdEncoding.EncodeToString(make([]byte, 2048))
	parts := []conversation.Part{
		{Type: "text", Text: "fine"},
		{Type: "image", MimeType: "image/png", Data: big},
	}
	err := ValidateParts(parts, 10, 1024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "part 1 too large")
}

func TestValidatePartsScansAllParts(t *testing.T) {
	big := base64.StdEncoding.EncodeToString(make([]byte, 2048))
	small := base64.StdEncoding.EncodeToString(make([]byte, 16))
	parts := []conversation.Part{
		{Type: "image", Data: small},
		{Type: "image", Data: small},
		{Type: "image", Data: big},
	}
	err := ValidateParts(parts, 10, 1024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "part 2")
}
