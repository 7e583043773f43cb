package summarize

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.New("prompts").Option("missingkey=error").ParseFS(promptFS, "prompts/*.tmpl"))

// Prompt is a rendered system/user pair.
type Prompt struct {
	System string
	User   string
}

type mapPromptData struct {
	Index int // 1-based
	Total int
	Text  string
}

type reducePromptData struct {
	Count       int
	Description string
	TargetWords int
	Partials    string
}

type directPromptData struct {
	Description string
	TargetWords int
	Text        string
}

type multiPromptData struct {
	Count       int
	Context     string
	TargetWords int
}

const partialSeparator = "\n\n---\n\n"

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func renderPrompt(system, user string, data any) (Prompt, error) {
	sys, err := render(system, data)
	if err != nil {
		return Prompt{}, err
	}
	usr, err := render(user, data)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{System: sys, User: usr}, nil
}

// MapPrompt renders the map-phase prompt for one chunk.
func MapPrompt(chunk Chunk) (Prompt, error) {
	return renderPrompt("map_system.tmpl", "map_user.tmpl", mapPromptData{
		Index: chunk.Index + 1,
		Total: chunk.Total,
		Text:  chunk.Text,
	})
}

// ReducePrompt renders the prompt merging partial summaries, given in chunk order.
func ReducePrompt(partials []string, policy LevelPolicy) (Prompt, error) {
	return renderPrompt("reduce_system.tmpl", "reduce_user.tmpl", reducePromptData{
		Count:       len(partials),
		Description: policy.Description,
		TargetWords: policy.TargetWords,
		Partials:    strings.Join(partials, partialSeparator),
	})
}

// DirectPrompt renders the single-call prompt for a document shorter than one chunk.
// It shares the reduce-phase system prompt.
func DirectPrompt(text string, policy LevelPolicy) (Prompt, error) {
	return renderPrompt("reduce_system.tmpl", "direct_user.tmpl", directPromptData{
		Description: policy.Description,
		TargetWords: policy.TargetWords,
		Text:        text,
	})
}

// MultiDocPrompt renders the template for mode over a composed context block.
func MultiDocPrompt(mode Mode, context string, count int, level Level) (Prompt, error) {
	targets, ok := modeWordTargets[mode]
	if !ok {
		return Prompt{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	words, ok := targets[level]
	if !ok {
		words = targets[LevelDetailed]
	}
	return renderPrompt(string(mode)+"_system.tmpl", string(mode)+"_user.tmpl", multiPromptData{
		Count:       count,
		Context:     context,
		TargetWords: words,
	})
}
