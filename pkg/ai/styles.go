package ai

// genericStyleDescription is used when a style id is unknown or empty.
// Generation never fails on a bad style value.
const genericStyleDescription = "a creative piece"

var writingStyles = map[string]string{
	"poem":      "a poetic form with rhythmic language and vivid imagery",
	"article":   "a journalistic article with clear paragraphs and an informative tone",
	"academic":  "an academic paper with formal language and structured arguments",
	"story":     "a short story with narrative elements, characters, and plot",
	"comedy":    "a humorous piece with jokes and lighthearted tone",
	"script":    "a screenplay/dialogue format with character names and stage directions",
	"fairytale": "a whimsical fairytale with magical elements and folkloric style",
	"letter":    "a personal or formal letter with appropriate greetings and closings",
	"sonnet":    "a 14-line poetic form following a specific rhyme scheme",
	"haiku":     "a three-line Japanese poetry format (5-7-5 syllables)",
}

// DescribeStyle maps a style id to the natural-language description used in
// prompts, falling back to a generic description for unknown ids.
func DescribeStyle(styleID string) string {
	if desc, ok := writingStyles[styleID]; ok {
		return desc
	}
	return genericStyleDescription
}
