package service

import (
	"fmt"
	"sort"
	"strings"
)

var contentSpecs = map[string]string{
	"politics":      "politics and current events",
	"technology":    "technology and innovation",
	"sports":        "sports and athletics",
	"entertainment": "entertainment and media",
	"health":        "health and wellness",
	"science":       "science and technology",
	"environment":   "environment and sustainability",
}

var lengthSpecs = map[string]string{
	"short":  "1-2 sentences, maximum 50 words",
	"medium": "2-4 sentences, 50-100 words",
	"long":   "4-6 sentences, 100-200 words",
}

var styleSpecs = map[string]string{
	"neutral":       "neutral and factual tone",
	"sensational":   "sensational and dramatic tone",
	"clickbait":     "clickbait and sensational tone",
	"misleading":    "misleading and inaccurate tone",
	"investigative": "investigative and critical tone",
	"satirical":     "satirical and critical tone",
	"humorous":      "humorous and critical tone",
}

type GenerateRequest struct {
	Context           string
	Style             string
	Length            string
	AdditionalContext string
}

func keys(m map[string]string) string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}

// BuildGenerationPrompt renders the generation instructions. Style and length
// come from closed sets; an unknown topic is passed through as written.
func BuildGenerationPrompt(req GenerateRequest) (string, error) {
	topic := strings.TrimSpace(req.Context)
	if topic == "" {
		return "", validationf("context is required")
	}
	style, ok := styleSpecs[req.Style]
	if !ok {
		return "", validationf("style must be one of: %s", keys(styleSpecs))
	}
	length, ok := lengthSpecs[req.Length]
	if !ok {
		return "", validationf("length must be one of: %s", keys(lengthSpecs))
	}
	subject, ok := contentSpecs[topic]
	if !ok {
		subject = topic
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You MUST generate a news article about %s ONLY.\n\n", subject)
	b.WriteString("STRICT REQUIREMENTS:\n")
	fmt.Fprintf(&b, "1. CONTENT: The article MUST be about %s - do not write about any other topic\n", strings.ToUpper(topic))
	fmt.Fprintf(&b, "2. STYLE: Use %s\n", style)
	fmt.Fprintf(&b, "3. LENGTH: Write exactly %s\n", length)
	if extra := strings.TrimSpace(req.AdditionalContext); extra != "" {
		fmt.Fprintf(&b, "4. ADDITIONAL CONTEXT: %s\n", extra)
	}
	fmt.Fprintf(&b, "\nCRITICAL: The article must be specifically about %s. Do not deviate from this topic.\n\n", subject)
	b.WriteString("Write only the news content (no title, byline, date, or source).")
	return b.String(), nil
}

func BuildVerdictPrompt(news string) string {
	var b strings.Builder
	b.WriteString("You are a fact-checking assistant. Decide whether the following news text is true or fake.\n")
	b.WriteString("Answer with exactly one word: \"true\" or \"fake\".\n\n")
	b.WriteString("NEWS:\n")
	b.WriteString(news)
	return b.String()
}
