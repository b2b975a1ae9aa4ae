// Package orchestrator turns style selections into generation calls and
// feeds results back into image sessions and the gallery.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/manash/stylestudio/internal/catalog"
	"github.com/manash/stylestudio/internal/compositor"
	"github.com/manash/stylestudio/internal/cost"
	"github.com/manash/stylestudio/internal/progress"
	"github.com/manash/stylestudio/internal/provider"
	"github.com/manash/stylestudio/internal/session"
	"github.com/manash/stylestudio/pkg/models"
)

var (
	ErrCredentialRequired = errors.New("credential required")
	ErrNoSelection        = errors.New("no style selected")
	ErrNoImage            = errors.New("no image selected")
	ErrNothingToCreate    = errors.New("a prompt or reference image is required")
	ErrBatchSelection     = errors.New("batch selections must be run with RunBatch")
	ErrNoResult           = errors.New("no result returned")
)

// Sessions is the subset of the session store the orchestrator mutates.
type Sessions interface {
	Create(data []byte, mimeType, name string) (string, error)
	Get(id string) (*session.ImageSession, error)
	AppendContent(id string, data []byte, mimeType, label string) bool
	ReplaceOriginal(id string, data []byte, mimeType string) bool
	SetAnimation(id string, ref models.VideoRef) bool
}

type Styles interface {
	Lookup(id string) (catalog.Style, bool)
	Add(s catalog.Style) error
}

// Credentials is the host's API key collaborator.
type Credentials interface {
	HasCredential() bool
	PromptForCredential(ctx context.Context) error
}

// Sink receives every successful image result.
type Sink interface {
	Record(ctx context.Context, entry models.GalleryEntry) error
}

const DefaultCooldown = time.Minute

type Orchestrator struct {
	client   provider.Client
	sessions Sessions
	styles   Styles
	creds    Credentials
	sink     Sink
	costs    *cost.Calculator
	registry *models.ModelRegistry
	log      zerolog.Logger
	lang     language.Tag
	aspect   models.AspectRatio
	cooldown time.Duration
	delay    time.Duration
	now      func() time.Time

	newEstimator func() progress.Estimator

	mu            sync.Mutex
	jobs          []*job
	batch         BatchProgress
	cooldownUntil time.Time
}

type Option func(*Orchestrator)

func WithCredentials(c Credentials) Option {
	return func(o *Orchestrator) { o.creds = c }
}

func WithSink(s Sink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

func WithLogger(log zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

func WithLanguage(lang language.Tag) Option {
	return func(o *Orchestrator) { o.lang = lang }
}

// WithAspectRatio sets the ratio used when a request leaves it empty.
func WithAspectRatio(a models.AspectRatio) Option {
	return func(o *Orchestrator) { o.aspect = a }
}

func WithCooldown(d time.Duration) Option {
	return func(o *Orchestrator) { o.cooldown = d }
}

// WithBatchDelay pauses between batch items.
func WithBatchDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.delay = d }
}

func WithCostCalculator(c *cost.Calculator) Option {
	return func(o *Orchestrator) { o.costs = c }
}

// WithRegistry should be the registry the client was built with so gallery
// costs are priced against the right models.
func WithRegistry(r *models.ModelRegistry) Option {
	return func(o *Orchestrator) { o.registry = r }
}

func WithEstimator(fn func() progress.Estimator) Option {
	return func(o *Orchestrator) { o.newEstimator = fn }
}

func withClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(client provider.Client, sessions Sessions, styles Styles, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:       client,
		sessions:     sessions,
		styles:       styles,
		costs:        cost.NewCalculator(),
		registry:     models.DefaultRegistry(),
		log:          zerolog.Nop(),
		lang:         language.English,
		aspect:       models.AspectAuto,
		cooldown:     DefaultCooldown,
		now:          time.Now,
		newEstimator: func() progress.Estimator { return progress.NewSimulated() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SetLanguage switches prompt and label localization.
func (o *Orchestrator) SetLanguage(lang language.Tag) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lang = lang
}

func (o *Orchestrator) language() language.Tag {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lang
}

// Outcome describes an applied result. Stale is set when the target session
// disappeared while the request was in flight; the result was dropped from
// the session but still recorded in the gallery.
type Outcome struct {
	SessionID      string
	Image          models.ImageData
	Prompt         string
	StyleName      string
	Cost           float64
	Stale          bool
	CreatedSession bool
	UsedReference  bool
}

type GenerateRequest struct {
	SessionID   string
	Selection   Selection
	Reference   *models.ImageData
	Aspect      models.AspectRatio
	Enhancement Enhancement
}

// Generate runs a single, custom or blend selection. Without a session only a
// custom prompt is accepted; it is rendered text-to-image into a new session.
// A (nil, nil) return means the service answered without an image.
func (o *Orchestrator) Generate(ctx context.Context, req GenerateRequest) (*Outcome, error) {
	lang := o.language()

	var (
		prompt    string
		styleName string
		reference = req.Reference
	)
	switch sel := req.Selection.(type) {
	case nil:
		return nil, ErrNoSelection
	case BatchSet:
		return nil, ErrBatchSelection
	case CustomPrompt:
		if strings.TrimSpace(sel.Text) == "" {
			return nil, ErrNoSelection
		}
		prompt = strings.TrimSpace(sel.Text)
		styleName = localized(lang, "Custom Description", "Mô tả tùy chỉnh")
	case SingleStyle:
		style, err := o.lookup(sel.StyleID)
		if err != nil {
			return nil, err
		}
		prompt = singlePrompt(style, sel.Modifier, lang)
		styleName = style.LocalizedLabel(lang)
		if reference == nil {
			reference = o.styleReference(style)
		}
	case Blend:
		a, err := o.lookup(sel.StyleA)
		if err != nil {
			return nil, err
		}
		b, err := o.lookup(sel.StyleB)
		if err != nil {
			return nil, err
		}
		prompt = blendPrompt(a, b, sel.Ratio, lang)
		styleName = a.LocalizedLabel(lang) + " + " + b.LocalizedLabel(lang)
	default:
		return nil, fmt.Errorf("unsupported selection %T", sel)
	}
	prompt = req.Enhancement.Apply(prompt)
	aspect := o.aspectFor(req.Aspect)

	if req.SessionID == "" {
		if _, ok := req.Selection.(CustomPrompt); !ok {
			return nil, ErrNoImage
		}
		return o.textToNewSession(ctx, JobGenerate, prompt, styleName, aspect)
	}

	sess, err := o.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}
	src := sess.OriginalImage()

	var img *models.ImageData
	err = o.execute(ctx, JobGenerate, req.SessionID, func(ctx context.Context) error {
		var err error
		img, err = o.client.StyleTransfer(ctx, src, prompt, reference, aspect)
		return err
	})
	if err != nil {
		return nil, softFail(err)
	}

	return o.commit(ctx, commit{
		sessionID: req.SessionID,
		image:     *img,
		label:     styleName,
		prompt:    prompt,
		styleName: styleName,
		op:        models.OpStylize,
		aspect:    aspect,
	}), nil
}

type CreateRequest struct {
	SessionID   string
	Prompt      string
	Reference   *models.ImageData
	Aspect      models.AspectRatio
	Enhancement Enhancement
}

// CreateImage generates a new image from a prompt and/or a reference. With
// both a reference and a session, the reference's style is applied to the
// session's original; otherwise the prompt is rendered text-to-image. The
// result goes to SessionID when set, else to a new session.
func (o *Orchestrator) CreateImage(ctx context.Context, req CreateRequest) (*Outcome, error) {
	base := strings.TrimSpace(req.Prompt)
	if base == "" && req.Reference == nil {
		return nil, ErrNothingToCreate
	}
	if base == "" {
		base = DefaultCreatePrompt
	}
	lang := o.language()
	prompt := req.Enhancement.Apply(base)
	aspect := o.aspectFor(req.Aspect)
	styleName := localized(lang, "New AI Generation", "Tạo mới từ AI")

	if req.SessionID == "" {
		return o.textToNewSession(ctx, JobCreate, prompt, styleName, aspect)
	}

	sess, err := o.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}

	var (
		img  *models.ImageData
		op   = models.OpTextToImage
		used = req.Reference != nil
	)
	err = o.execute(ctx, JobCreate, req.SessionID, func(ctx context.Context) error {
		var err error
		if used {
			op = models.OpStylize
			img, err = o.client.StyleTransfer(ctx, sess.OriginalImage(), referencePrompt(prompt), req.Reference, aspect)
			return err
		}
		img, err = o.client.TextToImage(ctx, prompt, aspect)
		return err
	})
	if err != nil {
		return nil, softFail(err)
	}

	out := o.commit(ctx, commit{
		sessionID: req.SessionID,
		image:     *img,
		label:     styleName,
		prompt:    prompt,
		styleName: styleName,
		op:        op,
		aspect:    aspect,
	})
	out.UsedReference = used
	return out, nil
}

func (o *Orchestrator) textToNewSession(ctx context.Context, kind JobKind, prompt, styleName string, aspect models.AspectRatio) (*Outcome, error) {
	var img *models.ImageData
	err := o.execute(ctx, kind, "", func(ctx context.Context) error {
		var err error
		img, err = o.client.TextToImage(ctx, prompt, aspect)
		return err
	})
	if err != nil {
		return nil, softFail(err)
	}

	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	id, err := o.sessions.Create(img.Data, mimeType, "AI Generated")
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	o.log.Info().Str("session", id).Msg("created session from text prompt")

	out := &Outcome{
		SessionID:      id,
		Image:          *img,
		Prompt:         prompt,
		StyleName:      styleName,
		Cost:           o.estimate(models.OpTextToImage, ""),
		CreatedSession: true,
	}
	o.record(ctx, out, aspect)
	return out, nil
}

// Upscale re-renders the session's current image at size and appends it.
func (o *Orchestrator) Upscale(ctx context.Context, sessionID string, size models.UpscaleSize) (*Outcome, error) {
	if _, err := models.ParseUpscaleSize(string(size)); err != nil {
		return nil, err
	}
	sess, err := o.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	src := sess.Current().Image()

	var img *models.ImageData
	err = o.execute(ctx, JobUpscale, sessionID, func(ctx context.Context) error {
		var err error
		img, err = o.client.Upscale(ctx, src, size)
		return err
	})
	if err != nil {
		return nil, softFail(err)
	}

	return o.commit(ctx, commit{
		sessionID: sessionID,
		image:     *img,
		label:     "upscale " + string(size),
		prompt:    "upscale " + string(size),
		styleName: "Upscale " + string(size),
		op:        models.OpUpscale,
		size:      size,
		aspect:    models.AspectSquare,
		noGallery: true,
	}), nil
}

// Animate turns the session's current image into a short clip and stores
// the video reference on the session.
func (o *Orchestrator) Animate(ctx context.Context, sessionID string) (*models.VideoRef, error) {
	sess, err := o.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	src := sess.Current().Image()

	var ref *models.VideoRef
	err = o.execute(ctx, JobAnimate, sessionID, func(ctx context.Context) error {
		var err error
		ref, err = o.client.Animate(ctx, src)
		return err
	})
	if err != nil {
		return nil, softFail(err)
	}

	if !o.sessions.SetAnimation(sessionID, *ref) {
		o.log.Warn().Str("session", sessionID).Msg("session removed before animation finished; result dropped")
	}
	return ref, nil
}

// Crop cuts rect out of the original (replacing it and resetting history) or
// out of the current image (appending the result).
func (o *Orchestrator) Crop(_ context.Context, sessionID string, rect image.Rectangle, onOriginal bool) error {
	sess, err := o.sessions.Get(sessionID)
	if err != nil {
		return err
	}

	src := sess.Current().Data
	if onOriginal {
		src = sess.Original
	}
	cropped, err := compositor.CropBytes(src, rect)
	if err != nil {
		return fmt.Errorf("failed to crop image: %w", err)
	}

	var ok bool
	if onOriginal {
		ok = o.sessions.ReplaceOriginal(sessionID, cropped.Data, cropped.MIMEType)
	} else {
		ok = o.sessions.AppendContent(sessionID, cropped.Data, cropped.MIMEType, "crop")
	}
	if !ok {
		return session.ErrSessionNotFound
	}
	return nil
}

// SaveReferenceStyle turns a reference image into a reusable catalog style.
func (o *Orchestrator) SaveReferenceStyle(_ context.Context, name, prompt string, reference models.ImageData, folderID string) (catalog.Style, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return catalog.Style{}, errors.New("style name is required")
	}
	if reference.IsEmpty() {
		return catalog.Style{}, models.ErrNoImageData
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = DefaultStylePrompt
	}

	style := catalog.Style{
		ID:             fmt.Sprintf("custom_style_%d", o.now().UnixMilli()),
		Label:          name,
		LabelVI:        name,
		Prompt:         prompt,
		PromptVI:       prompt,
		FolderID:       folderID,
		ReferenceImage: reference.DataURI(),
		Thumbnail:      reference.DataURI(),
		Custom:         true,
	}
	if err := o.styles.Add(style); err != nil {
		return catalog.Style{}, fmt.Errorf("failed to save style: %w", err)
	}
	o.log.Info().Str("style", style.ID).Str("name", name).Msg("saved reference style")
	return style, nil
}

// execute runs call as a tracked job. Authentication failures prompt the
// host for a credential and come back as ErrCredentialRequired.
func (o *Orchestrator) execute(ctx context.Context, kind JobKind, sessionID string, call func(context.Context) error) error {
	if err := o.requireCredential(ctx); err != nil {
		return err
	}
	err := o.submit(ctx, kind, sessionID, call)
	if provider.IsReauth(err) {
		o.promptCredential(ctx)
		return fmt.Errorf("%w: %w", ErrCredentialRequired, err)
	}
	return err
}

func (o *Orchestrator) submit(ctx context.Context, kind JobKind, sessionID string, call func(context.Context) error) error {
	j := o.newJob(kind, sessionID)
	o.setState(j, StateSubmitting, nil)
	j.estimator.Start(ctx)

	err := call(ctx)
	j.estimator.Complete()

	log := o.log.With().Str("job", j.id).Str("kind", string(kind)).Logger()
	switch {
	case err == nil:
		o.setState(j, StateSucceeded, nil)
		log.Debug().Msg("job succeeded")
	case errors.Is(err, provider.ErrNoCandidate):
		o.setState(j, StateSucceeded, nil)
		log.Warn().Msg("service returned no result")
	case errors.Is(err, provider.ErrRateLimited):
		o.setState(j, StateRateLimited, err)
		o.startCooldown()
		log.Warn().Err(err).Dur("cooldown", o.cooldown).Msg("rate limited")
	default:
		o.setState(j, StateFailed, err)
		log.Error().Err(err).Msg("job failed")
	}
	return err
}

func (o *Orchestrator) requireCredential(ctx context.Context) error {
	if o.creds == nil || o.creds.HasCredential() {
		return nil
	}
	o.promptCredential(ctx)
	return ErrCredentialRequired
}

func (o *Orchestrator) promptCredential(ctx context.Context) {
	if o.creds == nil {
		return
	}
	if err := o.creds.PromptForCredential(ctx); err != nil {
		o.log.Warn().Err(err).Msg("credential prompt failed")
	}
}

type commit struct {
	sessionID string
	image     models.ImageData
	label     string
	prompt    string
	styleName string
	op        models.Operation
	size      models.UpscaleSize
	aspect    models.AspectRatio
	noGallery bool
}

func (o *Orchestrator) commit(ctx context.Context, c commit) *Outcome {
	out := &Outcome{
		SessionID: c.sessionID,
		Image:     c.image,
		Prompt:    c.prompt,
		StyleName: c.styleName,
		Cost:      o.estimate(c.op, c.size),
	}

	mime := c.image.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	if !o.sessions.AppendContent(c.sessionID, c.image.Data, mime, c.label) {
		out.Stale = true
		o.log.Warn().Str("session", c.sessionID).Msg("session removed before result arrived; result dropped")
	}
	if !c.noGallery {
		o.record(ctx, out, c.aspect)
	}
	return out
}

func (o *Orchestrator) record(ctx context.Context, out *Outcome, aspect models.AspectRatio) {
	if o.sink == nil {
		return
	}
	entry := models.GalleryEntry{
		ID:          uuid.New().String(),
		Image:       out.Image,
		StyleName:   out.StyleName,
		Prompt:      out.Prompt,
		AspectRatio: aspect.Normalize(),
		Cost:        out.Cost,
		Timestamp:   o.now(),
	}
	if err := o.sink.Record(ctx, entry); err != nil {
		o.log.Error().Err(err).Str("style", out.StyleName).Msg("failed to record gallery entry")
	}
}

func (o *Orchestrator) estimate(op models.Operation, size models.UpscaleSize) float64 {
	model, err := o.registry.Model(op)
	if err != nil {
		return 0
	}
	return o.costs.Estimate(op, model, size).Total
}

func (o *Orchestrator) lookup(id string) (catalog.Style, error) {
	style, ok := o.styles.Lookup(id)
	if !ok {
		return catalog.Style{}, fmt.Errorf("%w: %s", catalog.ErrStyleNotFound, id)
	}
	return style, nil
}

func (o *Orchestrator) styleReference(style catalog.Style) *models.ImageData {
	if style.ReferenceImage == "" {
		return nil
	}
	ref, err := models.ParseDataURI(style.ReferenceImage)
	if err != nil {
		o.log.Warn().Err(err).Str("style", style.ID).Msg("ignoring unreadable style reference")
		return nil
	}
	return &ref
}

func (o *Orchestrator) aspectFor(a models.AspectRatio) models.AspectRatio {
	if a == "" {
		return o.aspect
	}
	return a
}

// softFail turns an empty answer into a silent no-op.
func softFail(err error) error {
	if errors.Is(err, provider.ErrNoCandidate) {
		return nil
	}
	return err
}

func localized(lang language.Tag, en, vi string) string {
	if catalog.IsVietnamese(lang) {
		return vi
	}
	return en
}
