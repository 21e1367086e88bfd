package component

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"stackforge/internal/contract"
	"stackforge/internal/llmclient"
)

const truncationMarker = "\n[TRUNCATED: context reduced to fit token budget]"

// ContextChunk is one piece of prompt context with a priority. Priority 1
// chunks are never dropped, only truncated; higher numbers are dropped
// first when the budget is exceeded.
type ContextChunk struct {
	ID       string
	Kind     string
	Content  string
	Priority int
	Tokens   int
}

// BuildChunks assembles prompt context from the contract brief and prior
// component results. The feature list and conventions are priority 1;
// existing contracts priority 2; raw history priority 3.
func BuildChunks(brief contract.Brief, features []string, history map[string]Result) []ContextChunk {
	var chunks []ContextChunk

	add := func(id, kind, content string, priority int) {
		if strings.TrimSpace(content) == "" {
			return
		}
		chunks = append(chunks, ContextChunk{
			ID:       id,
			Kind:     kind,
			Content:  content,
			Priority: priority,
			Tokens:   llmclient.CountTokens(content),
		})
	}

	add("features", "features", "Features to implement:\n- "+strings.Join(features, "\n- "), 1)

	if len(brief.Patterns) > 0 || len(brief.Decisions) > 0 || len(brief.SecurityStandards) > 0 {
		var b strings.Builder
		writeList(&b, "Established patterns", brief.Patterns)
		writeList(&b, "Architectural decisions", brief.Decisions)
		writeList(&b, "Security standards", brief.SecurityStandards)
		add("conventions", "conventions", b.String(), 1)
	}
	if len(brief.NamingConventions) > 0 || len(brief.CodeStyle) > 0 {
		var b strings.Builder
		writeMap(&b, "Naming conventions", brief.NamingConventions)
		writeMap(&b, "Code style", brief.CodeStyle)
		add("style", "conventions", b.String(), 1)
	}

	if len(brief.ExistingEndpoints) > 0 {
		data, _ := json.MarshalIndent(brief.ExistingEndpoints, "", "  ")
		add("endpoints", "contracts", "Existing API endpoints (call these, do not redefine):\n"+string(data), 2)
	}
	if len(brief.ExistingModels) > 0 {
		data, _ := json.MarshalIndent(brief.ExistingModels, "", "  ")
		add("models", "contracts", "Existing data models:\n"+string(data), 2)
	}

	names := make([]string, 0, len(history))
	for name := range history {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		res := history[name]
		if !res.Success {
			continue
		}
		paths := make([]string, 0, len(res.Files))
		for p := range res.Files {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		add("history-"+name, "history",
			fmt.Sprintf("Files already generated by %s:\n%s", name, strings.Join(paths, "\n")), 3)
	}

	return chunks
}

// FitBudget trims chunks to the token budget. Chunks above priority 1 are
// dropped lowest-priority-first; priority 1 chunks are kept but truncated
// proportionally when they alone exceed the budget.
func FitBudget(chunks []ContextChunk, budget int) []ContextChunk {
	if budget <= 0 {
		return chunks
	}

	total := 0
	for _, c := range chunks {
		total += c.Tokens
	}
	if total <= budget {
		return chunks
	}

	// Drop droppable chunks, lowest priority (highest number) first,
	// preserving the original order of what remains.
	type indexed struct {
		idx   int
		chunk ContextChunk
	}
	var droppable []indexed
	for i, c := range chunks {
		if c.Priority > 1 {
			droppable = append(droppable, indexed{i, c})
		}
	}
	sort.SliceStable(droppable, func(a, b int) bool {
		return droppable[a].chunk.Priority > droppable[b].chunk.Priority
	})

	dropped := make(map[int]bool)
	for _, d := range droppable {
		if total <= budget {
			break
		}
		dropped[d.idx] = true
		total -= d.chunk.Tokens
	}

	var out []ContextChunk
	for i, c := range chunks {
		if !dropped[i] {
			out = append(out, c)
		}
	}

	if total <= budget {
		return out
	}

	// Only mandatory chunks remain and they still exceed the budget:
	// truncate each proportionally.
	ratio := float64(budget) / float64(total)
	for i := range out {
		keep := int(float64(len(out[i].Content)) * ratio)
		if keep < len(out[i].Content) {
			if keep < 0 {
				keep = 0
			}
			out[i].Content = out[i].Content[:keep] + truncationMarker
			out[i].Tokens = llmclient.CountTokens(out[i].Content)
		}
	}
	return out
}

// RenderChunks joins chunk contents for inclusion in a prompt.
func RenderChunks(chunks []ContextChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Content)
	}
	return strings.Join(parts, "\n\n")
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(title + ":\n")
	for _, it := range items {
		b.WriteString("- " + it + "\n")
	}
}

func writeMap(b *strings.Builder, title string, m map[string]string) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.WriteString(title + ":\n")
	for _, k := range keys {
		b.WriteString("- " + k + ": " + m[k] + "\n")
	}
}
