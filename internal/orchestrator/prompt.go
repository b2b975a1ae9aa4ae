package orchestrator

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/manash/stylestudio/internal/catalog"
)

const (
	enhanceThreshold = 20

	vibrantClause = "High vibrancy, saturated colors, vivid details."
	mutedClause   = "Muted tones, desaturated palette, soft colors."
	brightClause  = "Bright lighting, airy atmosphere, optimistic feel."
	moodyClause   = "Dark moody lighting, cinematic shadows, dramatic atmosphere."

	singleModifierSep = ". Also, follow these extra instructions: "
	batchModifierSep  = ". Extra detail: "

	DefaultCreatePrompt = "A beautiful artistic generation"
	DefaultStylePrompt  = "Apply this unique visual aesthetic."

	referencePrefix = "STRICTLY apply the visual artistic style from the SECOND image to the content of the FIRST image. Prompt: "
)

// Enhancement nudges the final prompt. Both values range over [-50, 50];
// only values beyond ±20 take effect.
type Enhancement struct {
	Vibrancy int
	Mood     int
}

// Apply appends the clauses selected by e to prompt.
func (e Enhancement) Apply(prompt string) string {
	var clauses []string
	switch {
	case e.Vibrancy > enhanceThreshold:
		clauses = append(clauses, vibrantClause)
	case e.Vibrancy < -enhanceThreshold:
		clauses = append(clauses, mutedClause)
	}
	switch {
	case e.Mood > enhanceThreshold:
		clauses = append(clauses, brightClause)
	case e.Mood < -enhanceThreshold:
		clauses = append(clauses, moodyClause)
	}
	if len(clauses) == 0 {
		return prompt
	}
	if prompt == "" {
		return strings.Join(clauses, " ")
	}
	return prompt + " " + strings.Join(clauses, " ")
}

func singlePrompt(s catalog.Style, modifier string, lang language.Tag) string {
	p := s.LocalizedPrompt(lang)
	if m := strings.TrimSpace(modifier); m != "" {
		p += singleModifierSep + m
	}
	return p
}

func batchItemPrompt(s catalog.Style, modifier string, lang language.Tag) string {
	p := s.LocalizedPrompt(lang)
	if m := strings.TrimSpace(modifier); m != "" {
		p += batchModifierSep + m
	}
	return p
}

func blendPrompt(a, b catalog.Style, ratio int, lang language.Tag) string {
	ratio = min(max(ratio, 0), 100)
	return fmt.Sprintf("Blend two artistic styles into one cohesive image: %d%% %s (%s) and %d%% %s (%s).",
		ratio, a.LocalizedLabel(lang), strings.TrimSuffix(a.LocalizedPrompt(lang), "."),
		100-ratio, b.LocalizedLabel(lang), strings.TrimSuffix(b.LocalizedPrompt(lang), "."))
}

func referencePrompt(enhanced string) string {
	return referencePrefix + enhanced
}
