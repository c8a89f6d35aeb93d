package prompt

import (
	"fmt"
	"strings"

	"paperchat-be/internal/retrieval"
)

// ContextualBuilder assembles the grounded prompt for one chat turn.
type ContextualBuilder struct {
	results []retrieval.Result
	query   string
}

// NewContextualBuilder creates a new contextual prompt builder
func NewContextualBuilder(results []retrieval.Result, query string) *ContextualBuilder {
	return &ContextualBuilder{
		results: results,
		query:   query,
	}
}

// Build renders the retrieved excerpts, task and guidelines around the
// user's question. With no retrieval results the reference section is
// omitted entirely and the guidelines tell the model to say so.
func (b *ContextualBuilder) Build() string {
	var prompt strings.Builder

	b.writeReferenceMaterial(&prompt)
	b.writeTask(&prompt)
	b.writeGuidelines(&prompt)
	b.writeUserQuery(&prompt)

	return prompt.String()
}

func (b *ContextualBuilder) writeReferenceMaterial(prompt *strings.Builder) {
	if len(b.results) == 0 {
		return
	}

	prompt.WriteString("<reference_material>\n")
	for i, r := range b.results {
		prompt.WriteString(fmt.Sprintf("--- excerpt %d (source: %s) ---\n", i+1, b.sourceLabel(r)))
		prompt.WriteString(r.Chunk.Text)
		prompt.WriteString("\n")
	}
	prompt.WriteString("</reference_material>\n\n")
}

func (b *ContextualBuilder) sourceLabel(r retrieval.Result) string {
	if r.Paper != nil && r.Paper.Title != "" {
		return fmt.Sprintf("%s, \"%s\"", r.Document.Name, r.Paper.Title)
	}
	return r.Document.Name
}

func (b *ContextualBuilder) writeTask(prompt *strings.Builder) {
	prompt.WriteString("<task>\n")
	prompt.WriteString("You are a knowledgeable assistant helping the user understand the documents they attached to this session.\n")
	prompt.WriteString("Your goal is to answer their question using the reference excerpts above.\n")
	prompt.WriteString("</task>\n\n")
}

func (b *ContextualBuilder) writeGuidelines(prompt *strings.Builder) {
	prompt.WriteString("<guidelines>\n")
	prompt.WriteString("Response principles:\n")
	prompt.WriteString("1. Base your answer strictly on the reference material provided\n")
	prompt.WriteString("2. When you draw on an excerpt, name its source document\n")
	prompt.WriteString("3. Be complete - don't skip relevant information from the material\n")
	prompt.WriteString("4. Be clear and well-organized in your presentation\n")
	if len(b.results) == 0 {
		prompt.WriteString("5. No reference material is available for this question; say so honestly and answer from general knowledge only if the user clearly wants that\n")
	} else {
		prompt.WriteString("5. If the material doesn't contain what's being asked, say so honestly\n")
	}
	prompt.WriteString("</guidelines>\n\n")
}

func (b *ContextualBuilder) writeUserQuery(prompt *strings.Builder) {
	prompt.WriteString("<user_question>\n")
	prompt.WriteString(b.query)
	prompt.WriteString("\n</user_question>\n\n")
	prompt.WriteString("Now provide your complete response based on the reference material:")
}
