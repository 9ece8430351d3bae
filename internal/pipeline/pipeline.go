// Package pipeline runs the extract → inject → classify → emit stages over
// one document.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mvp-joe/flowmark/internal/annotate"
	"github.com/mvp-joe/flowmark/internal/markers"
	"github.com/mvp-joe/flowmark/internal/parsers"
	"github.com/mvp-joe/flowmark/internal/vfc"
)

// Config selects the optional behaviours of the stages.
type Config struct {
	// NormalizeEmphasis retries a failed parse with *name* emphasis removed.
	NormalizeEmphasis bool
	// SkipExisting avoids inserting tags that an earlier pass already wrote.
	SkipExisting bool
}

// Result holds everything one conversion produced. Results may be shared
// through a cache and must be treated as read-only.
type Result struct {
	Name       string
	Annotated  []string
	Transcript *vfc.Transcript
	Table      *markers.Table
}

// AnnotatedText joins the annotated lines with "\n".
func (r *Result) AnnotatedText() string {
	return strings.Join(r.Annotated, "\n")
}

// TranscriptText serializes the transcript including its footer.
func (r *Result) TranscriptText() string {
	return r.Transcript.String()
}

// ResultCache stores results keyed by content digest.
type ResultCache interface {
	Get(key string) (*Result, bool)
	Set(key string, result *Result)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCache reuses results for identical (name, config, content) inputs.
func WithCache(c ResultCache) Option {
	return func(p *Pipeline) {
		p.cache = c
	}
}

// Pipeline converts Python documents. It is safe for concurrent use; each
// Run owns its document, marker table and line buffers.
type Pipeline struct {
	cfg       Config
	extractor *parsers.Extractor
	injector  *annotate.Injector
	cache     ResultCache
	logger    *zap.Logger
}

// New creates a pipeline. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		cfg:       cfg,
		extractor: parsers.NewExtractor(parsers.WithEmphasisNormalization(cfg.NormalizeEmphasis)),
		injector:  annotate.New(annotate.WithSkipExisting(cfg.SkipExisting)),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run converts source. On a parse failure it returns the *parsers.ParseError
// and no result.
func (p *Pipeline) Run(ctx context.Context, name string, source []byte) (*Result, error) {
	key := ""
	if p.cache != nil {
		key = p.cacheKey(name, source)
		if cached, ok := p.cache.Get(key); ok {
			p.logger.Debug("conversion cache hit", zap.String("path", name))
			return cached, nil
		}
	}

	doc := parsers.NewDocument(name, source)
	table, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, err
	}

	annotated := p.injector.Inject(doc.Lines(), table)
	transcript := vfc.Emit(annotated, name)

	result := &Result{
		Name:       name,
		Annotated:  annotated,
		Transcript: transcript,
		Table:      table,
	}

	p.logger.Debug("converted document",
		zap.String("path", name),
		zap.Int("blocks", table.Len()),
		zap.Int("lines", len(annotated)),
		zap.Int("records", len(transcript.Records)))

	if p.cache != nil {
		p.cache.Set(key, result)
	}
	return result, nil
}

func (p *Pipeline) cacheKey(name string, source []byte) string {
	h := sha256.New()
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatBool(p.cfg.NormalizeEmphasis)))
	h.Write([]byte(strconv.FormatBool(p.cfg.SkipExisting)))
	h.Write([]byte{0})
	h.Write(source)
	return hex.EncodeToString(h.Sum(nil))
}
