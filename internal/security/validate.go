package security

import (
	"encoding/base64"
	"strings"

	"github.com/quiverlab/toolgate/internal/fault"
	"github.com/quiverlab/toolgate/internal/model/conversation"
)

// ValidateText rejects empty/whitespace-only values and values longer than
// max. len(value) == max is allowed.
func ValidateText(value, label string, max int) error {
	if strings.TrimSpace(value) == "" {
		return fault.Validationf(label, "%s cannot be empty", label)
	}
	if len(value) > max {
		return fault.Validationf(label, "%s too long: %d characters (max: %d)", label, len(value), max)
	}
	return nil
}

// ValidateParts bounds the number of multimodal parts and the decoded size
// of each inline base64 payload. Every part is inspected; the error names
// the first offending index found.
func ValidateParts(parts []conversation.Part, maxParts, maxInlineBytes int) error {
	if len(parts) > maxParts {
		return fault.Validationf("parts", "too many parts: %d (max: %d)", len(parts), maxParts)
	}

	badIdx := -1
	badSize := 0
	for i, p := range parts {
		if p.Data == "" {
			continue
		}
		decoded := base64.StdEncoding.DecodedLen(len(p.Data))
		if decoded > maxInlineBytes && badIdx == -1 {
			badIdx = i
			badSize = decoded
		}
	}
	if badIdx != -1 {
		return fault.Validationf("parts", "part %d too large: %d bytes (max: %d)", badIdx, badSize, maxInlineBytes)
	}
	return nil
}
