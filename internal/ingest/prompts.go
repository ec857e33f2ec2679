// Package ingest - prompts.go holds every prompt the file router sends.
package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gaia-chat/gaia-gateway/internal/config"
)

const (
	chunkSystem = "You compress text into clear, factual bullet notes. " +
		"Preserve names, dates, amounts, and units. Do not invent or add citations."

	mergeSystem = "Merge bullet notes. Dedupe and keep neutral tone. ≤800 tokens."

	finalStructuredSystem = "You are GAIA, a helpful general-purpose assistant. " +
		"Write concise, accurate answers. Avoid citations and tables unless explicitly requested."
	finalSimpleSystem = "You are GAIA, a helpful general-purpose assistant. " +
		"Respond conversationally and concisely. Do NOT add citations or tables unless asked."

	planSystem = "You generate precise SQLite SQL plans as VALID JSON only."

	rowSummarySystem = "Summarize the tabular results into ≤150 tokens. " +
		"Keep exact figures that appear. No citations."

	polishStructuredSystem = "You are GAIA. Write a crisp, decision-ready answer based on query, plan, and result. No citations."
	polishSimpleSystem     = "You are GAIA. Write a short, friendly answer from the result. No citations."
)

const (
	finalStructuredRules = "- Start with a 2–4 line direct answer.\n" +
		"- Then 3–5 brief bullets with key points or caveats.\n" +
		"- If information is missing, say so plainly."
	finalSimpleRules = "- 3–6 lines, natural tone.\n" +
		"- No citations. No tables.\n" +
		"- If something is unclear or missing, state it briefly."

	polishStructuredRules = "- Start with the answer in 2–4 lines.\n" +
		"- Then 3–5 key takeaways (bullets).\n" +
		"- If sampling/caps applied, mention briefly."
	polishSimpleRules = "- 3–6 lines, natural tone.\n" +
		"- No citations/tables unless requested."
)

func structured(style string) bool { return style == config.StyleStructured }

func chunkPrompt(file string, c Chunk) string {
	return fmt.Sprintf("File: %s  Ref: %s\nText:\n<<<%s>>>\nCompress to ≤120 tokens of bullets.", file, c.Ref, c.Text)
}

func mergePrompt(file string, notes []string) string {
	return fmt.Sprintf("File: %s\nNotes:\n<<<%s>>>\nReturn merged notes ≤800 tokens, grouped by obvious sections.",
		file, strings.Join(notes, "\n"))
}

func finalPrompts(question string, files []string, evidence, style string) (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\nFiles:\n", question)
	for _, f := range files {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	fmt.Fprintf(&b, "\nNotes from files:\n<<<\n%s\n>>>\n\nInstructions:\n", evidence)
	if structured(style) {
		b.WriteString(finalStructuredRules)
		return finalStructuredSystem, b.String()
	}
	b.WriteString(finalSimpleRules)
	return finalSimpleSystem, b.String()
}

func planPrompt(question string, p TableProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\nTable: %s (from %s, %d rows)\nSchema: ", question, p.EngineRef, p.TableName, p.RowCount)
	for i, c := range p.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s:%s", c.Name, c.Type)
	}
	b.WriteString("\nQuick stats:\n")
	for _, s := range p.QuickStats {
		fmt.Fprintf(&b, "- %s: nonnull%%=%.1f samples=[%s]\n", s.Column, s.NonNullPct, strings.Join(s.Samples, ", "))
	}
	b.WriteString("\nConstraints:\n" +
		"- Prefer SQLite SQL with CTEs if useful.\n" +
		"- Quote column names with double quotes.\n" +
		"- Output JSON ONLY:\n" +
		`{ "rationale": "...", "sql": "...", "expects_rows": true/false, "columns_used": [...] }`)
	return b.String()
}

func rowSummaryPrompt(question, table, csvText string) string {
	return fmt.Sprintf("Question: %s\nResult rows from %s:\n<<<%s>>>\nReturn a concise factual summary.", question, table, csvText)
}

func polishPrompts(question string, plan SQLPlan, result, style string) (string, string) {
	if structured(style) {
		planJSON, _ := json.MarshalIndent(plan, "", "  ")
		user := fmt.Sprintf("Question: %s\nPlan (JSON):\n%s\nResult:\n<<<%s>>>\n\nInstructions:\n%s",
			question, planJSON, result, polishStructuredRules)
		return polishStructuredSystem, user
	}
	user := fmt.Sprintf("Question: %s\nResult:\n<<<%s>>>\n\nInstructions:\n%s", question, result, polishSimpleRules)
	return polishSimpleSystem, user
}
