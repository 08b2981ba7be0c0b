package replacement

import (
	"fmt"
	"strings"
)

// basePrompt is shared by every replacement request.
const basePrompt = `You are editing an identification photograph for official documents.

HARD RULES
- Keep the person's face, identity, expression, skin tone and hairstyle exactly as in the input.
- Keep the framing, crop, head size and head position unchanged.
- The result must look like a real studio photograph, sharp and evenly lit.
- Return only the edited image, no text.`

// BuildPrompt returns the instruction for a background color and an
// optional outfit reference.
func BuildPrompt(color string, withOutfit bool) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\nTASK\n")

	c := NormalizeColor(color)
	if c == "" || c == KeepBackground {
		b.WriteString("- Keep the existing background unchanged.\n")
	} else {
		fmt.Fprintf(&b, "- Replace the entire background with a flat %s color, exactly %s, with no gradient, texture or shadow.\n", describeColor(c), c)
		b.WriteString("- Clean the edge around the hair and shoulders so no trace of the old background remains.\n")
	}

	if withOutfit {
		b.WriteString("- Dress the person in the outfit shown in the second image, fitted naturally to their shoulders and posture.\n")
	} else {
		b.WriteString("- Keep the person's clothing unchanged.\n")
	}
	return b.String()
}
