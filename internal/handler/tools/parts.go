package tools

import (
	"fmt"
	"strings"

	conv "github.com/quiverlab/toolgate/internal/model/conversation"
)

// foldParts flattens validated multimodal parts into the prompt text.
// Text parts are appended verbatim; binary parts become a reference the
// model can acknowledge without the payload itself.
func foldParts(prompt string, parts []conv.Part) string {
	if len(parts) == 0 {
		return prompt
	}

	var b strings.Builder
	b.WriteString(prompt)
	for i, p := range parts {
		b.WriteString("\n\n")
		switch {
		case p.Text != "":
			b.WriteString(p.Text)
		case p.Data != "":
			fmt.Fprintf(&b, "[attachment %d: %s, %d bytes base64]", i+1, p.MimeType, len(p.Data))
		}
	}
	return b.String()
}
