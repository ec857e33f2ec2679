// Package ingest - plan.go parses the model's SQL plan.
package ingest

import (
	"strings"

	"github.com/tidwall/gjson"
)

// SQLPlan is the planner's answer for one table.
type SQLPlan struct {
	Rationale   string   `json:"rationale"`
	SQL         string   `json:"sql"`
	ExpectsRows bool     `json:"expects_rows"`
	ColumnsUsed []string `json:"columns_used"`
}

// FailedPlan is returned when the planner reply is not a JSON plan.
func FailedPlan() SQLPlan {
	return SQLPlan{
		Rationale:   "Failed to parse plan JSON.",
		ExpectsRows: true,
		ColumnsUsed: []string{},
	}
}

// ParsePlan extracts a plan from a model reply. Markdown code fences and
// prose around the JSON object are tolerated. ok is false when the sentinel
// plan was returned.
func ParsePlan(reply string) (plan SQLPlan, ok bool) {
	raw := strings.TrimSpace(reply)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```")
		if nl := strings.IndexByte(raw, '\n'); nl >= 0 {
			raw = raw[nl+1:]
		}
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	}
	start, end := strings.IndexByte(raw, '{'), strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return FailedPlan(), false
	}
	raw = raw[start : end+1]
	if !gjson.Valid(raw) {
		return FailedPlan(), false
	}

	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return FailedPlan(), false
	}
	plan = SQLPlan{
		Rationale:   doc.Get("rationale").String(),
		SQL:         strings.TrimSpace(doc.Get("sql").String()),
		ExpectsRows: true,
		ColumnsUsed: []string{},
	}
	if v := doc.Get("expects_rows"); v.Exists() {
		plan.ExpectsRows = v.Bool()
	}
	doc.Get("columns_used").ForEach(func(_, v gjson.Result) bool {
		plan.ColumnsUsed = append(plan.ColumnsUsed, v.String())
		return true
	})
	return plan, true
}
