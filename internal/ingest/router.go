// Package ingest - router.go answers questions about uploaded files.
//
// DESIGN: Files are handled in upload order on one goroutine. Each file takes
// one of two paths:
//
//	text:    extract → (long) chunk → cheap compress each → cheap merge
//	         extract → (short) clamp
//	         all evidence → one expensive answer
//	tabular: load → type → register as tN → expensive SQL plan → execute
//	         → (large) cheap row summary → expensive polish
//
// Cheap calls go through dispatch.Engine.Try and degrade locally when they
// fail. Expensive calls go through the fallback engine and always produce
// text. Nothing here returns an error to the caller.
package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gaia-chat/gaia-gateway/internal/analytics"
	"github.com/gaia-chat/gaia-gateway/internal/chat"
	"github.com/gaia-chat/gaia-gateway/internal/config"
	"github.com/gaia-chat/gaia-gateway/internal/dispatch"
	"github.com/gaia-chat/gaia-gateway/internal/providers"
	"github.com/gaia-chat/gaia-gateway/internal/resolver"
	"github.com/gaia-chat/gaia-gateway/internal/tokens"
)

// Fixed replies.
const (
	NoFilesMessage       = "No files received. Please attach a file."
	UnreadableMessage    = "I couldn't read useful content from the attached files. Please try another format."
	ExecutionUnavailable = "Execution unavailable."
)

// TableEngine is the analytical engine the tabular path runs SQL on.
// *analytics.Engine implements it.
type TableEngine interface {
	Load(ctx context.Context, t analytics.Table) error
	Query(ctx context.Context, query string, limit int) (*analytics.Result, error)
	Close() error
}

// EngineOpener opens a fresh engine for one call.
type EngineOpener func(ctx context.Context) (TableEngine, error)

// OpenSQLite opens an in-memory SQLite engine.
func OpenSQLite(ctx context.Context) (TableEngine, error) {
	eng, err := analytics.Open(ctx)
	if err != nil {
		return nil, err
	}
	return eng, nil
}

// Options are the router thresholds.
type Options struct {
	TextThreshold        int
	ChunkChars           int
	ChunkOverlap         int
	MaxDirectInputTokens int
	MaxTableRows         int
	ProfileColumns       int
	MaxResultRows        int
	MaxResultColumns     int
	RowSampleForSummary  int
}

// OptionsFrom copies the router thresholds out of the orchestration config.
func OptionsFrom(c config.OrchestrationConfig) Options {
	return Options{
		TextThreshold:        c.TextThreshold,
		ChunkChars:           c.ChunkChars,
		ChunkOverlap:         c.ChunkOverlap,
		MaxDirectInputTokens: c.MaxDirectInputTokens,
		MaxTableRows:         c.MaxTableRows,
		ProfileColumns:       c.ProfileColumns,
		MaxResultRows:        c.MaxResultRows,
		MaxResultColumns:     c.MaxResultColumns,
		RowSampleForSummary:  c.RowSampleForSummary,
	}
}

func (o *Options) applyDefaults() {
	setDefault(&o.TextThreshold, config.DefaultTextThreshold)
	setDefault(&o.ChunkChars, config.DefaultChunkChars)
	setDefault(&o.ChunkOverlap, config.DefaultChunkOverlap)
	setDefault(&o.MaxDirectInputTokens, config.DefaultMaxDirectInputTokens)
	setDefault(&o.MaxTableRows, config.DefaultMaxTableRows)
	setDefault(&o.ProfileColumns, config.DefaultProfileColumns)
	setDefault(&o.MaxResultRows, config.DefaultMaxResultRows)
	setDefault(&o.MaxResultColumns, config.DefaultMaxResultColumns)
	setDefault(&o.RowSampleForSummary, config.DefaultRowSampleForSummary)
}

func setDefault(v *int, d int) {
	if *v <= 0 {
		*v = d
	}
}

// Request is one question about a set of files.
type Request struct {
	Question string
	Files    []UploadedFile
	Model    resolver.ResolvedModel
	Cheap    resolver.ResolvedModel
	Style    string
}

// ManifestEntry describes one uploaded file and what happened to it.
type ManifestEntry struct {
	Name   string `json:"name"`
	MIME   string `json:"mime"`
	Size   int    `json:"size"`
	SHA256 string `json:"sha256"`
	Kind   Kind   `json:"kind"`
	Status string `json:"status"`
	Table  string `json:"table,omitempty"`
}

// Meta is returned with every file answer.
type Meta struct {
	FileCount int             `json:"file_count"`
	Manifest  []ManifestEntry `json:"manifest"`
	Model     string          `json:"model"`
}

// Reply is the router's answer. ModelUsed is empty when no expensive call
// was made.
type Reply struct {
	Text      string
	ModelUsed string
	Meta      Meta
}

// Router answers file questions.
type Router struct {
	engine    *dispatch.Engine
	estimator tokens.Estimator
	opts      Options
	open      EngineOpener
}

// NewRouter creates a router. A nil opener disables SQL execution.
func NewRouter(engine *dispatch.Engine, estimator tokens.Estimator, opts Options, open EngineOpener) *Router {
	opts.applyDefaults()
	if estimator == nil {
		estimator = tokens.Heuristic{}
	}
	return &Router{engine: engine, estimator: estimator, opts: opts, open: open}
}

// Answer runs the file pipeline for req.
func (r *Router) Answer(ctx context.Context, req Request) Reply {
	out := Reply{Meta: Meta{FileCount: len(req.Files), Manifest: []ManifestEntry{}, Model: req.Model.LogicalKey}}
	if len(req.Files) == 0 {
		out.Text = NoFilesMessage
		return out
	}

	var textFiles, dataFiles []int
	for i, f := range req.Files {
		kind := f.Kind()
		out.Meta.Manifest = append(out.Meta.Manifest, ManifestEntry{
			Name: f.Name, MIME: f.MIME, Size: len(f.Data), SHA256: f.SHA256, Kind: kind,
		})
		switch kind {
		case KindTabular:
			dataFiles = append(dataFiles, i)
		case KindText:
			textFiles = append(textFiles, i)
		default:
			out.Meta.Manifest[i].Status = "skipped: unrecognized"
		}
	}
	log.Debug().
		Int("files", len(req.Files)).
		Int("text", len(textFiles)).
		Int("tabular", len(dataFiles)).
		Str("model", req.Model.ModelID).
		Msg("ingest: routing files")

	var evidence, usedNames []string
	for _, i := range textFiles {
		f := req.Files[i]
		note, err := r.textEvidence(ctx, req.Cheap, f)
		if err != nil {
			var xe *ExtractionError
			status := "skipped"
			if errors.As(err, &xe) {
				status = "skipped: " + string(xe.Kind)
			}
			out.Meta.Manifest[i].Status = status
			log.Warn().Err(err).Str("file", f.Name).Msg("ingest: text extraction failed, skipping file")
			continue
		}
		out.Meta.Manifest[i].Status = "used"
		evidence = append(evidence, note)
		usedNames = append(usedNames, f.Name)
	}

	var answers []string
	if len(dataFiles) > 0 {
		answers, out.ModelUsed = r.tabularAnswers(ctx, req, dataFiles, out.Meta.Manifest)
	}

	switch {
	case len(answers) > 0:
		out.Text = strings.Join(answers, "\n\n")
	case len(evidence) > 0:
		system, user := finalPrompts(req.Question, usedNames, strings.Join(evidence, "\n\n"), req.Style)
		o := r.engine.Complete(ctx, req.Model, system, user, dispatch.Options{Temperature: temperature(0.2)})
		out.Text, out.ModelUsed = o.Reply, o.ModelUsed
	default:
		out.Text = UnreadableMessage
	}
	return out
}

// =============================================================================
// TEXT PATH
// =============================================================================

func (r *Router) textEvidence(ctx context.Context, cheap resolver.ResolvedModel, f UploadedFile) (string, error) {
	text, err := ExtractText(f)
	if err != nil {
		return "", err
	}
	if r.estimator.Estimate(text) <= r.opts.TextThreshold {
		return fmt.Sprintf("[%s]\n%s", f.Name, tokens.Clamp(text, r.opts.MaxDirectInputTokens)), nil
	}

	chunks := MakeChunks(text, r.opts.ChunkChars, r.opts.ChunkOverlap)
	notes := make([]string, 0, len(chunks))
	for _, c := range chunks {
		note, err := r.cheapCall(ctx, cheap, chunkSystem, chunkPrompt(f.Name, c), config.DefaultChunkNoteTokens*2, "chunk")
		if err != nil {
			log.Warn().Err(err).Str("file", f.Name).Str("ref", c.Ref).Msg("ingest: chunk compression failed, using clamped text")
			note = tokens.Clamp(c.Text, config.DefaultChunkNoteTokens)
		}
		notes = append(notes, fmt.Sprintf("(%s) %s", c.Ref, note))
	}

	merged, err := r.cheapCall(ctx, cheap, mergeSystem, mergePrompt(f.Name, notes), config.DefaultMergeNoteTokens+200, "merge")
	if err != nil {
		log.Warn().Err(err).Str("file", f.Name).Msg("ingest: note merge failed, joining notes")
		merged = strings.Join(notes, "\n")
	}
	log.Debug().Str("file", f.Name).Int("chunks", len(chunks)).Msg("ingest: long text compressed")
	return fmt.Sprintf("[%s]\n%s", f.Name, merged), nil
}

// =============================================================================
// TABULAR PATH
// =============================================================================

func (r *Router) tabularAnswers(ctx context.Context, req Request, idx []int, manifest []ManifestEntry) ([]string, string) {
	var eng TableEngine
	if r.open != nil {
		e, err := r.open(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("ingest: analytical engine unavailable")
		} else {
			eng = e
			defer func() {
				if err := eng.Close(); err != nil {
					log.Debug().Err(err).Msg("ingest: engine close failed")
				}
			}()
		}
	}

	var (
		answers   []string
		modelUsed string
	)
	for n, i := range idx {
		f := req.Files[i]
		raw, err := LoadTable(f, r.opts.MaxTableRows)
		if err != nil {
			manifest[i].Status = "skipped: load failed"
			log.Warn().Err(err).Str("file", f.Name).Msg("ingest: table load failed, skipping file")
			continue
		}

		ref := fmt.Sprintf("t%d", n)
		table := raw.Typed(ref)
		executable := false
		if eng != nil {
			if err := eng.Load(ctx, table); err != nil {
				log.Warn().Err(err).Str("file", f.Name).Str("table", ref).Msg("ingest: table registration failed")
			} else {
				executable = true
			}
		}
		manifest[i].Status = "used"
		manifest[i].Table = ref

		profile := raw.Profile(f.Name, table.Columns, r.opts.ProfileColumns, config.DefaultProfileSamples)
		profile.EngineRef = ref
		if raw.Capped {
			log.Info().Str("file", f.Name).Int("rows", len(raw.Rows)).Msg("ingest: table capped")
		}

		var q TableEngine
		if executable {
			q = eng
		}
		answer, used := r.answerTable(ctx, req, profile, q)
		answers = append(answers, answer)
		modelUsed = used
	}
	return answers, modelUsed
}

func (r *Router) answerTable(ctx context.Context, req Request, profile TableProfile, eng TableEngine) (string, string) {
	planOut := r.engine.Complete(ctx, req.Model, planSystem, planPrompt(req.Question, profile), dispatch.Options{Temperature: temperature(0.1)})
	plan, ok := ParsePlan(planOut.Reply)
	if !ok {
		log.Warn().Str("table", profile.EngineRef).Msg("ingest: plan reply was not JSON, using sentinel plan")
	}

	var result string
	switch {
	case plan.SQL == "" || eng == nil:
		result = ExecutionUnavailable
	default:
		res, err := eng.Query(ctx, plan.SQL, r.opts.MaxResultRows)
		if err != nil {
			log.Warn().Err(err).Str("table", profile.EngineRef).Msg("ingest: SQL execution failed")
			result = fmt.Sprintf("SQL execution failed: %v", err)
		} else {
			result = r.shapeResult(ctx, req, profile, res)
		}
	}

	system, user := polishPrompts(req.Question, plan, result, req.Style)
	o := r.engine.Complete(ctx, req.Model, system, user, dispatch.Options{Temperature: temperature(0.2)})
	return o.Reply, o.ModelUsed
}

// shapeResult renders res as CSV, summarized by the cheap model when large.
func (r *Router) shapeResult(ctx context.Context, req Request, profile TableProfile, res *analytics.Result) string {
	cols := res.Columns
	if len(cols) > r.opts.MaxResultColumns {
		cols = cols[:r.opts.MaxResultColumns]
	}
	if len(res.Rows) == 0 {
		return "(no rows)\n" + strings.Join(cols, ",")
	}

	if !res.Truncated && len(res.Rows) <= r.opts.RowSampleForSummary {
		return renderCSV(cols, res.Rows)
	}

	// res.Rows is already capped at MaxResultRows by the engine.
	table := renderCSV(cols, res.Rows)
	summary, err := r.cheapCall(ctx, req.Cheap, rowSummarySystem,
		rowSummaryPrompt(req.Question, profile.EngineRef, table), config.DefaultRowSummaryTokens*2, "row_summary")
	if err != nil {
		log.Warn().Err(err).Str("table", profile.EngineRef).Msg("ingest: row summary failed, using clamped preview")
		summary = tokens.Clamp(table, r.opts.MaxDirectInputTokens)
	}
	return fmt.Sprintf("Summary of %s rows:\n%s", rowCount(res), summary)
}

func rowCount(res *analytics.Result) string {
	if res.Truncated {
		return fmt.Sprintf("more than %d", len(res.Rows))
	}
	return strconv.Itoa(len(res.Rows))
}

func renderCSV(cols []string, rows [][]any) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(cols)
	rec := make([]string, len(cols))
	for _, row := range rows {
		for i := range cols {
			rec[i] = formatValue(row[i])
		}
		_ = w.Write(rec)
	}
	w.Flush()
	return strings.TrimRight(buf.String(), "\n")
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []byte:
		return string(x)
	}
	return fmt.Sprint(v)
}

// =============================================================================
// HELPERS
// =============================================================================

// cheapCall makes one low-temperature call with no fallback.
func (r *Router) cheapCall(ctx context.Context, cheap resolver.ResolvedModel, system, user string, maxTokens int, stage string) (string, error) {
	res, err := r.engine.Try(ctx, cheap.Provider, providers.Request{
		Model:       cheap.ModelID,
		Messages:    []chat.Message{chat.System(system), chat.User(user)},
		MaxTokens:   maxTokens,
		Temperature: temperature(0),
	}, stage)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(res.Reply) == "" {
		return "", fmt.Errorf("%s: empty reply from %s", stage, cheap.ModelID)
	}
	return strings.TrimSpace(res.Reply), nil
}

func temperature(v float64) *float64 { return &v }
