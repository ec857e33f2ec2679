package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePlan(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		ok     bool
		sql    string
		expect bool
		cols   []string
	}{
		{
			name:   "bare json",
			reply:  `{"rationale":"sum it","sql":"SELECT SUM(amount) FROM t0","expects_rows":true,"columns_used":["amount"]}`,
			ok:     true,
			sql:    "SELECT SUM(amount) FROM t0",
			expect: true,
			cols:   []string{"amount"},
		},
		{
			name:   "fenced with prose",
			reply:  "```json\nHere you go: {\"rationale\":\"r\",\"sql\":\" SELECT 1 \",\"expects_rows\":false}\n```",
			ok:     true,
			sql:    "SELECT 1",
			expect: false,
			cols:   []string{},
		},
		{
			name:   "not json",
			reply:  "I would sum the amount column.",
			ok:     false,
			expect: true,
			cols:   []string{},
		},
		{
			name:   "broken json",
			reply:  `{"rationale": "x", "sql": }`,
			ok:     false,
			expect: true,
			cols:   []string{},
		},
		{
			name:   "provider error text",
			reply:  "Error from groq (llama-3.3-70b-versatile): upstream: HTTP 503",
			ok:     false,
			expect: true,
			cols:   []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, ok := ParsePlan(tt.reply)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.sql, plan.SQL)
			assert.Equal(t, tt.expect, plan.ExpectsRows)
			assert.Equal(t, tt.cols, plan.ColumnsUsed)
			if !ok {
				assert.NotEmpty(t, plan.Rationale)
			}
		})
	}
}
