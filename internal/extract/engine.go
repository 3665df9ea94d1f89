// Package extract turns decoded documents into student, discipline and
// educational-program records.
package extract

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dgallion1/eduparse/internal/document"
	"github.com/dgallion1/eduparse/internal/lookup"
	"github.com/dgallion1/eduparse/internal/observe"
	"github.com/dgallion1/eduparse/internal/record"
)

// Result carries the records of one extraction. Only the slices for the
// requested kind are set.
type Result struct {
	Kind            Kind
	Format          document.Format
	Students        []record.Student
	Disciplines     []record.Discipline
	Program         *record.EducationalProgram
	MainDisciplines []record.MainDiscipline
}

// Count returns the number of top-level records produced.
func (r *Result) Count() int {
	switch r.Kind {
	case KindStudent:
		return len(r.Students)
	case KindDiscipline:
		return len(r.Disciplines)
	case KindProgram:
		if r.Program != nil {
			return 1
		}
	}
	return 0
}

// Options configures an Engine. Resolver is required for student
// extraction only.
type Options struct {
	Decoder     *document.Decoder
	Resolver    lookup.Resolver
	Columns     *StudentColumns
	Logger      *slog.Logger
	Instruments *observe.Instruments
	Stats       *Stats
}

// Engine dispatches documents to the extractor for their format and kind.
// It holds no per-call state and is safe for concurrent use.
type Engine struct {
	decoder  *document.Decoder
	resolver lookup.Resolver
	tabular  *TabularExtractor
	text     *TextExtractor
	tables   *TableScanner
	log      *slog.Logger
	inst     *observe.Instruments
	stats    *Stats
}

func NewEngine(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	dec := opts.Decoder
	if dec == nil {
		dec = &document.Decoder{}
	}
	cols := DefaultStudentColumns()
	if opts.Columns != nil {
		cols = *opts.Columns
	}
	text := &TextExtractor{Log: log}
	return &Engine{
		decoder:  dec,
		resolver: opts.Resolver,
		tabular:  &TabularExtractor{Columns: cols, Log: log},
		text:     text,
		tables:   &TableScanner{Text: text, Log: log},
		log:      log,
		inst:     opts.Instruments,
		stats:    opts.Stats,
	}
}

// Stats returns the engine's rolling latency tracker, or nil.
func (e *Engine) Stats() *Stats { return e.stats }

// Extract runs one extraction. limit <= 0 means DefaultLimit and values
// above MaxLimit are clamped; it is ignored for educational programs.
func (e *Engine) Extract(ctx context.Context, h *document.Handle, kind Kind, limit int) (*Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)
	attrs := []attribute.KeyValue{
		attribute.String("extract.kind", string(kind)),
		attribute.String("extract.format", string(h.Format)),
	}
	if e.inst != nil {
		var span trace.Span
		ctx, span = e.inst.Tracer.Start(ctx, "extract.run", trace.WithAttributes(attrs...))
		defer span.End()
	}

	start := time.Now()
	res, err := e.dispatch(ctx, h, kind, limit)
	elapsed := time.Since(start)
	e.finish(ctx, attrs, kind, elapsed, err)

	if err != nil {
		e.log.Warn("extraction failed",
			"file", h.Name,
			"kind", string(kind),
			"format", string(h.Format),
			"error", err,
		)
		return nil, err
	}
	e.log.Info("extraction complete",
		"file", h.Name,
		"kind", string(kind),
		"format", string(h.Format),
		"records", res.Count(),
		"duration_ms", elapsed.Milliseconds(),
	)
	return res, nil
}

// supported lists the strategies available per format.
var supported = map[document.Format]map[Kind]bool{
	document.FormatTabular:    {KindStudent: true, KindDiscipline: true},
	document.FormatLinearText: {KindDiscipline: true, KindProgram: true},
	document.FormatStructured: {KindDiscipline: true, KindProgram: true},
}

// Supports reports whether kind can be extracted from format.
func Supports(format document.Format, kind Kind) bool {
	return supported[format][kind]
}

func (e *Engine) dispatch(ctx context.Context, h *document.Handle, kind Kind, limit int) (*Result, error) {
	if !Supports(h.Format, kind) {
		return nil, &UnsupportedCombination{Format: h.Format, Kind: kind}
	}
	res := &Result{Kind: kind, Format: h.Format}
	switch h.Format {
	case document.FormatTabular:
		tab, err := e.decoder.Tabular(h)
		if err != nil {
			return nil, &ParseFailure{Kind: kind, Err: err}
		}
		switch kind {
		case KindStudent:
			students, err := e.students(ctx, tab, limit)
			if err != nil {
				return nil, err
			}
			res.Students = students
			return res, nil
		case KindDiscipline:
			res.Disciplines = e.tabular.Disciplines(tab, limit)
			return res, nil
		}

	case document.FormatLinearText:
		text, err := e.decoder.Text(h)
		if err != nil {
			return nil, &ParseFailure{Kind: kind, Err: err}
		}
		switch kind {
		case KindDiscipline:
			res.Disciplines = e.text.Disciplines(text, limit)
			return res, nil
		case KindProgram:
			p, core := e.text.Program(text)
			p.DisciplinesCount = len(core)
			res.Program, res.MainDisciplines = &p, core
			return res, nil
		}

	case document.FormatStructured:
		doc, err := e.decoder.Structured(h)
		if err != nil {
			return nil, &ParseFailure{Kind: kind, Err: err}
		}
		switch kind {
		case KindDiscipline:
			res.Disciplines = e.tables.Disciplines(doc, limit)
			return res, nil
		case KindProgram:
			p, core := e.tables.Program(doc)
			p.DisciplinesCount = len(core)
			res.Program, res.MainDisciplines = &p, core
			return res, nil
		}
	}
	return nil, &UnsupportedCombination{Format: h.Format, Kind: kind}
}

// students resolves every lookup category before touching a row; any
// lookup failure aborts the whole extraction.
func (e *Engine) students(ctx context.Context, tab *document.Tabular, limit int) ([]record.Student, error) {
	if e.resolver == nil {
		return nil, &lookup.UnavailableError{Category: lookup.Faculty, Err: errors.New("no directory configured")}
	}
	maps, err := lookup.ResolveAll(ctx, e.resolver)
	if err != nil {
		if e.inst != nil {
			e.inst.LookupFailures.Add(ctx, 1)
		}
		return nil, err
	}
	return e.tabular.Students(tab, limit, maps), nil
}

func (e *Engine) finish(ctx context.Context, attrs []attribute.KeyValue, kind Kind, elapsed time.Duration, err error) {
	if e.stats != nil {
		e.stats.Record(kind, elapsed, err != nil)
	}
	if e.inst == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = outcomeOf(err)
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	attrs = append(attrs, attribute.String("extract.outcome", outcome))
	e.inst.Extractions.Add(ctx, 1, metric.WithAttributes(attrs...))
	e.inst.ExtractDuration.Record(ctx, float64(elapsed.Microseconds())/1000, metric.WithAttributes(attrs...))
}

func outcomeOf(err error) string {
	var (
		pf *ParseFailure
		uc *UnsupportedCombination
		ue *lookup.UnavailableError
	)
	switch {
	case errors.As(err, &pf):
		return "parse_failure"
	case errors.As(err, &uc):
		return "unsupported"
	case errors.As(err, &ue):
		return "lookup_unavailable"
	}
	return "error"
}
