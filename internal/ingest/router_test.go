package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaia-chat/gaia-gateway/internal/config"
	"github.com/gaia-chat/gaia-gateway/internal/dispatch"
	"github.com/gaia-chat/gaia-gateway/internal/providers"
	"github.com/gaia-chat/gaia-gateway/internal/resolver"
)

var (
	expensive = resolver.ResolvedModel{LogicalKey: "grok", Provider: providers.ProviderGroq, ModelID: "llama-3.3-70b-versatile"}
	cheap     = resolver.ResolvedModel{LogicalKey: "grok", Provider: providers.ProviderGroq, ModelID: "llama-3.1-8b-instant"}
)

// stageCaller answers by recognizing the system prompt of each stage.
type stageCaller struct {
	mu          sync.Mutex
	plan        string
	failChunk   bool
	failSummary bool
	stages      []string
	users       map[string][]string
}

func (c *stageCaller) Generate(_ context.Context, p providers.Provider, req providers.Request) (providers.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	system, user := "", req.Prompt
	if len(req.Messages) > 0 {
		system, user = req.Messages[0].Content, req.Messages[len(req.Messages)-1].Content
	}

	stage, reply := "unknown", ""
	switch system {
	case chunkSystem:
		stage, reply = "chunk", "- bullet note"
	case mergeSystem:
		stage, reply = "merge", "merged notes"
	case planSystem:
		stage, reply = "plan", c.plan
	case rowSummarySystem:
		stage, reply = "row_summary", "rows summarized"
	case polishSimpleSystem, polishStructuredSystem:
		stage, reply = "polish", "POLISHED"
	case finalSimpleSystem, finalStructuredSystem:
		stage, reply = "final", "FINAL ANSWER"
	}
	c.stages = append(c.stages, stage)
	if c.users == nil {
		c.users = map[string][]string{}
	}
	c.users[stage] = append(c.users[stage], user)

	if stage == "row_summary" && c.failSummary {
		return providers.Result{}, &providers.CallError{Kind: providers.KindUpstream, Provider: p, Model: req.Model, Err: errors.New("HTTP 500")}
	}
	if stage == "chunk" && c.failChunk {
		return providers.Result{}, &providers.CallError{Kind: providers.KindRateLimit, Provider: p, Model: req.Model, Err: errors.New("HTTP 429")}
	}
	return providers.Result{Reply: reply}, nil
}

func (c *stageCaller) count(stage string) int {
	n := 0
	for _, s := range c.stages {
		if s == stage {
			n++
		}
	}
	return n
}

func newRouter(c *stageCaller, open EngineOpener) *Router {
	return NewRouter(dispatch.NewEngine(c, nil, nil), nil, OptionsFrom(config.Default().Orchestration), open)
}

func ask(q string, files ...UploadedFile) Request {
	return Request{Question: q, Files: files, Model: expensive, Cheap: cheap, Style: config.StyleSimple}
}

func TestAnswer_NoFiles(t *testing.T) {
	c := &stageCaller{}
	out := newRouter(c, nil).Answer(context.Background(), ask("hi"))

	assert.Equal(t, NoFilesMessage, out.Text)
	assert.Equal(t, 0, out.Meta.FileCount)
	assert.Empty(t, out.Meta.Manifest)
	assert.Equal(t, "grok", out.Meta.Model)
	assert.Empty(t, c.stages)
}

func TestAnswer_ShortTextSkipsChunking(t *testing.T) {
	c := &stageCaller{}
	out := newRouter(c, nil).Answer(context.Background(),
		ask("What is this?", Wrap("memo.txt", []byte(strings.Repeat("word ", 700)), "")))

	assert.Equal(t, "FINAL ANSWER", out.Text)
	assert.Equal(t, expensive.ModelID, out.ModelUsed)
	assert.Equal(t, []string{"final"}, c.stages)
	assert.Contains(t, c.users["final"][0], "[memo.txt]\nword word")
	assert.Contains(t, c.users["final"][0], "- memo.txt")
	assert.Equal(t, "used", out.Meta.Manifest[0].Status)
}

func TestAnswer_LongTextChunksThenMergesOnce(t *testing.T) {
	c := &stageCaller{}
	long := strings.Repeat("The quarterly figure was 42 units. ", 400)
	out := newRouter(c, nil).Answer(context.Background(), ask("Summarize", Wrap("report.md", []byte(long), "")))

	assert.Equal(t, "FINAL ANSWER", out.Text)
	assert.GreaterOrEqual(t, c.count("chunk"), 1)
	assert.Equal(t, 1, c.count("merge"))
	assert.Equal(t, 1, c.count("final"))
	assert.Contains(t, c.users["final"][0], "[report.md]\nmerged notes")
	assert.Contains(t, c.users["chunk"][0], "Ref: part-1")
}

func TestAnswer_ChunkFailureDegradesToClampedText(t *testing.T) {
	c := &stageCaller{failChunk: true}
	long := strings.Repeat("abcd ", 1000)
	out := newRouter(c, nil).Answer(context.Background(), ask("Summarize", Wrap("a.txt", []byte(long), "")))

	assert.Equal(t, "FINAL ANSWER", out.Text)
	assert.Equal(t, 1, c.count("merge"))
	assert.Contains(t, c.users["merge"][0], "(part-1) abcd abcd")
}

func TestAnswer_UnreadableFiles(t *testing.T) {
	c := &stageCaller{}
	out := newRouter(c, nil).Answer(context.Background(), ask("what?",
		Wrap("photo.png", []byte{0x89}, "image/png"),
		Wrap("empty.txt", []byte("  "), ""),
	))

	assert.Equal(t, UnreadableMessage, out.Text)
	assert.Empty(t, out.ModelUsed)
	assert.Empty(t, c.stages)
	require.Len(t, out.Meta.Manifest, 2)
	assert.Equal(t, "skipped: unrecognized", out.Meta.Manifest[0].Status)
	assert.Equal(t, "skipped: empty", out.Meta.Manifest[1].Status)
}

const amounts = "name,amount\nalice,10\nbob,20\ncarol,30\n"

func TestAnswer_CSVWithEngine(t *testing.T) {
	c := &stageCaller{plan: "```json\n" + `{"rationale":"add amounts","sql":"SELECT SUM(amount) AS total FROM t0","expects_rows":true,"columns_used":["amount"]}` + "\n```"}
	out := newRouter(c, OpenSQLite).Answer(context.Background(), ask("total amount", Wrap("pay.csv", []byte(amounts), "")))

	assert.Equal(t, "POLISHED", out.Text)
	assert.Equal(t, []string{"plan", "polish"}, c.stages)
	assert.Contains(t, c.users["plan"][0], "Table: t0 (from pay.csv, 3 rows)")
	assert.Contains(t, c.users["plan"][0], "Schema: name:TEXT, amount:INTEGER")
	assert.Contains(t, c.users["polish"][0], "<<<total\n60>>>")
	assert.Equal(t, "t0", out.Meta.Manifest[0].Table)
	assert.Equal(t, 1, out.Meta.FileCount)
}

func TestAnswer_CSVWithoutEngine(t *testing.T) {
	c := &stageCaller{plan: `{"rationale":"add","sql":"SELECT SUM(amount) FROM t0"}`}
	out := newRouter(c, nil).Answer(context.Background(), ask("total amount", Wrap("pay.csv", []byte(amounts), "")))

	assert.Equal(t, "POLISHED", out.Text)
	assert.Contains(t, c.users["polish"][0], ExecutionUnavailable)
}

func TestAnswer_PlanParseFailureStillReplies(t *testing.T) {
	c := &stageCaller{plan: "I'd just add them up."}
	out := newRouter(c, OpenSQLite).Answer(context.Background(), ask("total amount", Wrap("pay.csv", []byte(amounts), "")))

	assert.NotEmpty(t, out.Text)
	assert.Contains(t, c.users["polish"][0], ExecutionUnavailable)
}

func TestAnswer_SQLErrorIsPolished(t *testing.T) {
	c := &stageCaller{plan: `{"rationale":"x","sql":"SELECT nope FROM t0"}`}
	out := newRouter(c, OpenSQLite).Answer(context.Background(), ask("total amount", Wrap("pay.csv", []byte(amounts), "")))

	assert.Equal(t, "POLISHED", out.Text)
	assert.Contains(t, c.users["polish"][0], "SQL execution failed:")
}

// numberedCSV builds a table with cols columns c0..c{cols-1} and rows rows;
// row i holds i in every column.
func numberedCSV(cols, rows int) []byte {
	var b strings.Builder
	for c := 0; c < cols; c++ {
		if c > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "c%d", c)
	}
	b.WriteByte('\n')
	for i := 1; i <= rows; i++ {
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(i))
		}
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func TestAnswer_ResultShaping(t *testing.T) {
	tests := []struct {
		name        string
		cols, rows  int
		sql         string
		wantStages  []string
		inspect     string
		contains    []string
		notContains []string
	}{
		{
			name:       "small result goes straight to polish",
			cols:       1,
			rows:       10,
			sql:        "SELECT c0 FROM t0 ORDER BY c0",
			wantStages: []string{"plan", "polish"},
			inspect:    "polish",
			contains:   []string{"c0\n1\n", "\n10>>>"},
		},
		{
			name:       "every row reaches the summarizer",
			cols:       1,
			rows:       100,
			sql:        "SELECT c0 FROM t0 ORDER BY c0",
			wantStages: []string{"plan", "row_summary", "polish"},
			inspect:    "row_summary",
			contains:   []string{"c0\n1\n", "\n60\n", "\n61\n", "\n100>>>"},
		},
		{
			name:        "capped result is summarized",
			cols:        1,
			rows:        250,
			sql:         "SELECT c0 FROM t0 ORDER BY c0",
			wantStages:  []string{"plan", "row_summary", "polish"},
			inspect:     "row_summary",
			contains:    []string{"\n200>>>"},
			notContains: []string{"\n201"},
		},
		{
			name:        "wide result keeps twelve columns",
			cols:        15,
			rows:        3,
			sql:         "SELECT * FROM t0 ORDER BY c0",
			wantStages:  []string{"plan", "polish"},
			inspect:     "polish",
			contains:    []string{"c0,c1,c2,c3,c4,c5,c6,c7,c8,c9,c10,c11\n"},
			notContains: []string{"c12", "c13", "c14"},
		},
		{
			name:        "wide large result summarizes twelve columns",
			cols:        15,
			rows:        80,
			sql:         "SELECT * FROM t0 ORDER BY c0",
			wantStages:  []string{"plan", "row_summary", "polish"},
			inspect:     "row_summary",
			contains:    []string{"c0,c1,c2,c3,c4,c5,c6,c7,c8,c9,c10,c11\n", "\n80,80,80,80,80,80,80,80,80,80,80,80>>>"},
			notContains: []string{"c12"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &stageCaller{plan: fmt.Sprintf(`{"rationale":"x","sql":%q}`, tt.sql)}
			out := newRouter(c, OpenSQLite).Answer(context.Background(),
				ask("list", Wrap("n.csv", numberedCSV(tt.cols, tt.rows), "")))

			assert.Equal(t, "POLISHED", out.Text)
			require.Equal(t, tt.wantStages, c.stages)
			require.Len(t, c.users[tt.inspect], 1)
			input := c.users[tt.inspect][0]
			for _, want := range tt.contains {
				assert.Contains(t, input, want)
			}
			for _, unwanted := range tt.notContains {
				assert.NotContains(t, input, unwanted)
			}
		})
	}
}

func TestAnswer_SummaryFailureUsesClampedRows(t *testing.T) {
	c := &stageCaller{plan: `{"rationale":"x","sql":"SELECT c0 FROM t0 ORDER BY c0"}`, failSummary: true}
	out := newRouter(c, OpenSQLite).Answer(context.Background(),
		ask("list", Wrap("n.csv", numberedCSV(1, 100), "")))

	assert.Equal(t, "POLISHED", out.Text)
	assert.Contains(t, c.users["polish"][0], "Summary of 100 rows:\nc0\n1\n")
	assert.Contains(t, c.users["polish"][0], "\n100")
}

func TestAnswer_TabularAnswersJoined(t *testing.T) {
	c := &stageCaller{plan: `{"rationale":"x","sql":"SELECT 1"}`}
	out := newRouter(c, OpenSQLite).Answer(context.Background(), ask("compare",
		Wrap("a.csv", []byte(amounts), ""),
		Wrap("b.tsv", []byte("x\ty\n1\t2\n"), ""),
	))

	assert.Equal(t, "POLISHED\n\nPOLISHED", out.Text)
	assert.Equal(t, "t0", out.Meta.Manifest[0].Table)
	assert.Equal(t, "t1", out.Meta.Manifest[1].Table)
}
