// Package replacement runs background and outfit replacement for graded
// photos through a client.Replacer.
//
// A photo is graded with its global and regional adjustments, shrunk so its
// longest side fits the service limit, and sent with a prompt built from the
// requested color. Batches are strictly sequential with a fixed pause
// between service calls, and one failed photo never stops the others.
package replacement

import (
	"context"
	"encoding/binary"
	"image"
	"time"

	"github.com/charmbracelet/log"

	"github.com/menta2k/idphoto/pkg/cache"
	"github.com/menta2k/idphoto/pkg/client"
	"github.com/menta2k/idphoto/pkg/errors"
	"github.com/menta2k/idphoto/pkg/processing"
	"github.com/menta2k/idphoto/pkg/tone"
)

// DefaultDelay is the pause between two service calls in a batch.
const DefaultDelay = 3 * time.Second

// Job is one photo to send to the service.
type Job struct {
	ID         string
	Source     *tone.PixelBuffer
	Adjustment tone.Adjustment
	Regions    []tone.RegionalAdjustment
	Outfit     image.Image
	Color      string
	// Prompt overrides the generated instruction when set.
	Prompt string
}

// Outcome is the result of one Job. Exactly one of Image and Err is set.
type Outcome struct {
	ID        string
	Image     *tone.PixelBuffer
	UsedColor string
	Err       error
	Cached    bool
	// Called reports that the backend was asked, whether or not it
	// answered with an image.
	Called bool
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	Outcomes  []Outcome
	Succeeded int
	Failed    int
}

// Processor sends jobs to a replacement backend.
type Processor struct {
	replacer client.Replacer
	proc     *processing.Processor
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *log.Logger
	delay    time.Duration
	maxDim   int
	modelTag string
	sleep    func(context.Context, time.Duration) error
}

// Option configures a Processor.
type Option func(*Processor)

// WithDelay sets the pause between service calls.
func WithDelay(d time.Duration) Option {
	return func(p *Processor) { p.delay = d }
}

// WithCache stores service results in c for ttl. A ttl of zero never expires.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(p *Processor) {
		p.cache = c
		p.cacheTTL = ttl
	}
}

// WithLogger sets the progress logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithMaxDim sets the longest side sent to the service.
func WithMaxDim(n int) Option {
	return func(p *Processor) { p.maxDim = n }
}

// WithModelTag names the backend model in cache keys, so switching models
// does not reuse old answers.
func WithModelTag(tag string) Option {
	return func(p *Processor) { p.modelTag = tag }
}

// New creates a Processor for r.
func New(r client.Replacer, opts ...Option) *Processor {
	p := &Processor{
		replacer: r,
		proc:     processing.NewProcessor(),
		cache:    cache.NewNullCache(),
		logger:   log.Default(),
		delay:    DefaultDelay,
		maxDim:   processing.DefaultServiceMaxDim,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one job. Service failures are returned as SERVICE errors.
func (p *Processor) Process(ctx context.Context, job Job) (Outcome, error) {
	out, err := p.process(ctx, job)
	if err != nil {
		return Outcome{ID: job.ID, Err: err, Called: out.Called}, err
	}
	return out, nil
}

func (p *Processor) process(ctx context.Context, job Job) (Outcome, error) {
	if job.Source == nil || job.Source.Width == 0 || job.Source.Height == 0 {
		return Outcome{}, errors.New(errors.ErrCodeInvalidInput, "image %q has no source raster", job.ID)
	}
	if p.replacer == nil {
		return Outcome{}, errors.New(errors.ErrCodeInternal, "no replacement backend configured")
	}

	color := NormalizeColor(job.Color)
	if color == "" {
		color = DefaultColor
	}
	if !ValidateColor(color) {
		return Outcome{}, errors.New(errors.ErrCodeInvalidInput, "invalid background color %q", job.Color)
	}

	graded := tone.GradeWithRegions(job.Source, job.Adjustment, job.Regions)
	photo := p.proc.PrepareForService(graded.ToImage(), p.maxDim)

	prompt := job.Prompt
	if prompt == "" {
		prompt = BuildPrompt(color, job.Outfit != nil)
	}

	key := p.cacheKey(photo, job.Outfit, color, prompt)
	if data, ok, err := p.cache.Get(ctx, key); err == nil && ok {
		if img, err := p.proc.Decode(data); err == nil {
			p.logger.Debug("replacement cache hit", "image", job.ID)
			return Outcome{ID: job.ID, Image: tone.FromImage(img), UsedColor: color, Cached: true}, nil
		}
	}

	start := time.Now()
	img, err := p.replacer.Replace(ctx, client.Request{
		Image:           photo,
		BackgroundColor: color,
		Outfit:          job.Outfit,
		Prompt:          prompt,
	})
	if err != nil {
		if errors.GetCode(err) == "" {
			err = errors.Service(err, "replacement failed for %q", job.ID)
		}
		return Outcome{Called: true}, err
	}
	if img == nil || img.Bounds().Empty() {
		return Outcome{Called: true}, errors.New(errors.ErrCodeService, "service returned an empty image for %q", job.ID)
	}
	p.logger.Info("replaced background", "image", job.ID, "color", color, "elapsed", time.Since(start).Round(time.Millisecond))

	if data, err := p.proc.EncodeBytes(img, "png", 0); err == nil {
		if err := p.cache.Set(ctx, key, data, p.cacheTTL); err != nil {
			p.logger.Warn("cache write failed", "image", job.ID, "error", err)
		}
	}

	return Outcome{ID: job.ID, Image: tone.FromImage(img), UsedColor: color, Called: true}, nil
}

// Batch runs jobs one at a time in order, pausing after every job that
// reached the backend. Jobs rejected before the call and cache hits add no
// pause.
// onResult, if set, is called after each job. A failed job is recorded and
// the batch continues; it is never retried. Cancelling ctx stops the batch
// and marks the remaining jobs with the context error.
func (p *Processor) Batch(ctx context.Context, jobs []Job, onResult func(Outcome)) BatchResult {
	res := BatchResult{Outcomes: make([]Outcome, 0, len(jobs))}
	called := false

	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			res.cancel(jobs[i:], err, onResult)
			break
		}
		if called && p.delay > 0 {
			if err := p.sleep(ctx, p.delay); err != nil {
				res.cancel(jobs[i:], err, onResult)
				break
			}
		}

		p.logger.Info("processing", "image", job.ID, "position", i+1, "total", len(jobs))
		out, err := p.Process(ctx, job)
		called = out.Called
		if err != nil {
			p.logger.Error("replacement failed", "image", job.ID, "error", err)
			res.Failed++
		} else {
			res.Succeeded++
		}
		res.Outcomes = append(res.Outcomes, out)
		if onResult != nil {
			onResult(out)
		}
	}
	return res
}

func (r *BatchResult) cancel(rest []Job, err error, onResult func(Outcome)) {
	for _, job := range rest {
		out := Outcome{ID: job.ID, Err: err}
		r.Outcomes = append(r.Outcomes, out)
		r.Failed++
		if onResult != nil {
			onResult(out)
		}
	}
}

func (p *Processor) cacheKey(photo, outfit image.Image, color, prompt string) string {
	parts := [][]byte{[]byte(p.modelTag), []byte(color), []byte(prompt), rasterBytes(photo)}
	if outfit != nil {
		parts = append(parts, rasterBytes(outfit))
	}
	return cache.Key("replace", parts...)
}

func rasterBytes(img image.Image) []byte {
	buf := tone.FromImage(img)
	out := make([]byte, 8, 8+len(buf.Pix))
	binary.BigEndian.PutUint32(out[0:], uint32(buf.Width))
	binary.BigEndian.PutUint32(out[4:], uint32(buf.Height))
	return append(out, buf.Pix...)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
