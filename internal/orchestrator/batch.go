package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/manash/stylestudio/internal/batch"
	"github.com/manash/stylestudio/internal/provider"
	"github.com/manash/stylestudio/pkg/models"
)

type BatchRequest struct {
	SessionID   string
	Set         BatchSet
	Reference   *models.ImageData
	Aspect      models.AspectRatio
	Enhancement Enhancement
}

// BatchResult is the outcome for one style of a batch. Err is nil on success.
type BatchResult struct {
	StyleID string
	Outcome *Outcome
	Err     error
}

func (r BatchResult) Success() bool {
	return r.Err == nil
}

// RunBatch stylizes the session's original once per style, one request at a
// time. A failing style never stops the batch; every style gets a result.
// Results are recorded in the gallery but not added to the session history.
// After an authentication failure the host is prompted once and the remaining
// styles fail with ErrCredentialRequired without calling the service.
func (o *Orchestrator) RunBatch(ctx context.Context, req BatchRequest, onProgress batch.ProgressFunc) ([]BatchResult, error) {
	if len(req.Set.StyleIDs) == 0 {
		return nil, ErrNoSelection
	}
	if req.SessionID == "" {
		return nil, ErrNoImage
	}
	sess, err := o.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}
	if err := o.requireCredential(ctx); err != nil {
		return nil, err
	}

	src := sess.OriginalImage()
	lang := o.language()
	aspect := o.aspectFor(req.Aspect)
	total := len(req.Set.StyleIDs)
	reauth := false

	o.setBatchProgress(0, total)
	o.log.Info().Str("session", req.SessionID).Int("styles", total).Msg("batch started")

	run := func(ctx context.Context, styleID string) (*Outcome, error) {
		if reauth {
			return nil, ErrCredentialRequired
		}
		style, err := o.lookup(styleID)
		if err != nil {
			return nil, err
		}

		prompt := req.Enhancement.Apply(batchItemPrompt(style, req.Set.Modifier, lang))
		reference := req.Reference
		if reference == nil {
			reference = o.styleReference(style)
		}

		var img *models.ImageData
		err = o.submit(ctx, JobBatch, req.SessionID, func(ctx context.Context) error {
			var err error
			img, err = o.client.StyleTransfer(ctx, src, prompt, reference, aspect)
			return err
		})
		switch {
		case errors.Is(err, provider.ErrNoCandidate):
			return nil, ErrNoResult
		case provider.IsReauth(err):
			reauth = true
			o.promptCredential(ctx)
			return nil, fmt.Errorf("%w: %w", ErrCredentialRequired, err)
		case err != nil:
			return nil, err
		}

		out := &Outcome{
			SessionID: req.SessionID,
			Image:     *img,
			Prompt:    prompt,
			StyleName: style.LocalizedLabel(lang),
			Cost:      o.estimate(models.OpStylize, ""),
		}
		o.record(ctx, out, aspect)
		return out, nil
	}

	progress := func(current, total int) {
		o.setBatchProgress(current, total)
		if onProgress != nil {
			onProgress(current, total)
		}
	}

	raw := batch.Run(ctx, req.Set.StyleIDs, run, progress, batch.WithDelay(o.delay))

	results := make([]BatchResult, len(raw))
	failed := 0
	for i, r := range raw {
		results[i] = BatchResult{StyleID: r.Item, Outcome: r.Value, Err: r.Err}
		if r.Err != nil {
			failed++
			o.log.Warn().Err(r.Err).Str("style", r.Item).Int("index", r.Index).Msg("batch item failed")
		}
	}
	o.log.Info().Int("succeeded", total-failed).Int("failed", failed).Msg("batch finished")
	return results, nil
}
