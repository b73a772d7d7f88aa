// Package generation runs batches of image requests: it checks
// preconditions, charges once, publishes placeholders and then dispatches
// items one by one with pacing, retries and cooperative cancellation.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"setka/internal/domain"
	"setka/internal/infra"
	"setka/internal/providers/image"
	"setka/internal/retry"
)

// DefaultPacingDelay separates successive dispatches of a multi-item batch.
const DefaultPacingDelay = 2500 * time.Millisecond

// PaymentContext says who pays for a batch and how.
type PaymentContext struct {
	UserID string
	Mode   domain.PaymentMode
}

// Charger deducts credits atomically. ok is false when the balance is short.
type Charger interface {
	TryCharge(ctx context.Context, userID string, amount int) (ok bool, err error)
}

// CredentialResolver returns the key a provider family should be called
// with for this payer.
type CredentialResolver interface {
	ResolveCredential(ctx context.Context, pay PaymentContext, family string) (string, error)
}

// Batch is a submission of one or more requests to the same provider.
type Batch struct {
	ID       string
	Requests []image.Request
	// ItemIDs optionally names the items, e.g. portrait variation ids.
	ItemIDs []string
	Payment PaymentContext
	Token   *CancelToken
}

// Options wires the orchestrator.
type Options struct {
	Providers   *image.Registry
	Charger     Charger
	Credentials CredentialResolver
	Logger      *infra.Logger

	// PacingDelay defaults to DefaultPacingDelay. A negative value disables it.
	PacingDelay time.Duration
	// Sleeper replaces real timers for pacing and backoff.
	Sleeper retry.Sleeper
	// Retry options are applied to every dispatch.
	Retry []retry.Option
	Now   func() time.Time
	NewID func() string
}

// Orchestrator executes batches.
type Orchestrator struct {
	providers   *image.Registry
	charger     Charger
	credentials CredentialResolver
	logger      *infra.Logger
	pacing      time.Duration
	sleeper     retry.Sleeper
	retryOpts   []retry.Option
	now         func() time.Time
	newID       func() string
}

// New builds an orchestrator from opts.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		providers:   opts.Providers,
		charger:     opts.Charger,
		credentials: opts.Credentials,
		logger:      infra.OrNop(opts.Logger),
		pacing:      opts.PacingDelay,
		sleeper:     opts.Sleeper,
		retryOpts:   opts.Retry,
		now:         opts.Now,
		newID:       opts.NewID,
	}
	if o.pacing == 0 {
		o.pacing = DefaultPacingDelay
	}
	if o.sleeper == nil {
		o.sleeper = retry.TimerSleeper{}
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	return o
}

type plan struct {
	provider   image.Provider
	credential string
	cost       int
}

// Submit validates b, charges for it once, publishes a pending placeholder
// per request and starts processing in the background. Precondition
// failures return a *PreconditionError and publish nothing.
func (o *Orchestrator) Submit(ctx context.Context, b Batch, sink Sink) (*Run, error) {
	p, err := o.prepare(ctx, &b)
	if err != nil {
		return nil, err
	}

	if b.Token == nil {
		b.Token = NewCancelToken()
	}
	run := newRun(b.ID, b.Payment.UserID, p.provider.Name(), b.Token, sink, o.now)
	run.requests = append([]image.Request(nil), b.Requests...)

	prompts := make([]string, len(b.Requests))
	aspects := make([]domain.AspectRatio, len(b.Requests))
	for i, req := range b.Requests {
		prompts[i] = req.Prompt
		aspects[i] = req.AspectRatio
	}
	run.publishPlaceholders(b.ID, prompts, b.ItemIDs, aspects)
	run.setState(StateRunning)

	o.logger.Info().
		Str("batch_id", b.ID).
		Str("provider", p.provider.Name()).
		Str("user_id", b.Payment.UserID).
		Int("items", len(b.Requests)).
		Int("cost", p.cost).
		Msg("generation: batch started")

	go o.process(context.WithoutCancel(ctx), run, b, p)
	return run, nil
}

// Regenerate runs prev again as a one-item batch under the same item id.
// An empty req.Prompt reuses the previous prompt.
func (o *Orchestrator) Regenerate(ctx context.Context, prev Result, req image.Request, pay PaymentContext, sink Sink) (*Run, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		req.Prompt = prev.Prompt
	}
	if req.AspectRatio == "" {
		req.AspectRatio = prev.AspectRatio
	}
	if req.Provider == "" {
		req.Provider = prev.Provider
	}
	return o.Submit(ctx, Batch{
		Requests: []image.Request{req},
		ItemIDs:  []string{prev.ID},
		Payment:  pay,
	}, sink)
}

func (o *Orchestrator) prepare(ctx context.Context, b *Batch) (plan, error) {
	if len(b.Requests) == 0 {
		return plan{}, precondition(ErrIncompatibleRequest, nil, "batch is empty")
	}
	if b.ID == "" {
		b.ID = o.newID()
	}
	if len(b.ItemIDs) != len(b.Requests) {
		b.ItemIDs = make([]string, len(b.Requests))
	}
	for i := range b.ItemIDs {
		if b.ItemIDs[i] == "" {
			b.ItemIDs[i] = o.newID()
		}
	}

	providerID := b.Requests[0].Provider
	provider, err := o.providers.Resolve(providerID)
	if err != nil {
		return plan{}, precondition(ErrIncompatibleRequest, err, "unknown provider %q", providerID)
	}
	caps := provider.Capabilities()
	if caps.MaxBatchSize > 0 && len(b.Requests) > caps.MaxBatchSize {
		return plan{}, precondition(ErrIncompatibleRequest, nil, "%s accepts at most %d images per batch", provider.Name(), caps.MaxBatchSize)
	}
	for i := range b.Requests {
		req := &b.Requests[i]
		if req.Provider != providerID {
			return plan{}, precondition(ErrIncompatibleRequest, nil, "item %d targets %q, batch targets %q", i, req.Provider, providerID)
		}
		if req.AspectRatio == "" {
			req.AspectRatio = domain.DefaultAspectRatio
		}
		if len(req.References) > 0 && !caps.SupportsImageInput {
			return plan{}, precondition(ErrIncompatibleRequest, nil, "%s does not accept reference images", provider.Name())
		}
		if !caps.SupportsAspect(req.AspectRatio) {
			return plan{}, precondition(ErrIncompatibleRequest, nil, "%s does not support aspect ratio %s", provider.Name(), req.AspectRatio)
		}
	}

	var credential string
	if caps.Credential != image.CredentialNone {
		if o.credentials == nil {
			return plan{}, precondition(ErrMissingCredential, nil, "no credential source")
		}
		credential, err = o.credentials.ResolveCredential(ctx, b.Payment, caps.Credential)
		if err != nil {
			if errors.Is(err, ErrMissingCredential) {
				return plan{}, precondition(ErrMissingCredential, err, "%s", caps.Credential)
			}
			return plan{}, fmt.Errorf("generation: resolve credential: %w", err)
		}
		if strings.TrimSpace(credential) == "" {
			return plan{}, precondition(ErrMissingCredential, nil, "%s", caps.Credential)
		}
	}

	cost := len(b.Requests) * caps.CostFor(b.Payment.Mode)
	if cost > 0 {
		if o.charger == nil {
			return plan{}, precondition(ErrInsufficientBalance, nil, "no charger configured")
		}
		ok, err := o.charger.TryCharge(ctx, b.Payment.UserID, cost)
		if err != nil {
			return plan{}, fmt.Errorf("generation: charge: %w", err)
		}
		if !ok {
			return plan{}, precondition(ErrInsufficientBalance, nil, "%d credits required", cost)
		}
	}
	return plan{provider: provider, credential: credential, cost: cost}, nil
}

func (o *Orchestrator) process(ctx context.Context, run *Run, b Batch, p plan) {
	defer close(run.done)

	if bp, ok := p.provider.(image.BatchProvider); ok && p.provider.Capabilities().NativeBatch && len(b.Requests) > 1 && uniform(b.Requests) {
		o.processNative(ctx, run, b, bp, p.credential)
		return
	}

	log := o.logger.With().Str("batch_id", b.ID).Str("provider", p.provider.Name()).Logger()
	for i, req := range b.Requests {
		if i > 0 && len(b.Requests) > 1 && o.pacing > 0 {
			_ = o.sleeper.Sleep(ctx, o.pacing, b.Token.Done())
		}
		if b.Token.Cancelled() || ctx.Err() != nil {
			o.stop(run, &log)
			return
		}

		attempts := 0
		assets, err := retry.Do(ctx, func(ctx context.Context) ([]image.Asset, error) {
			attempts++
			return p.provider.Generate(ctx, req, p.credential)
		}, o.retryOptions(b.Token, &log)...)

		if b.Token.Cancelled() {
			o.stop(run, &log)
			return
		}
		o.commit(run, i, assets, err, attempts, &log)
	}
	run.setState(StateCompleted)
	log.Info().Msg("generation: batch completed")
}

func (o *Orchestrator) processNative(ctx context.Context, run *Run, b Batch, bp image.BatchProvider, credential string) {
	log := o.logger.With().Str("batch_id", b.ID).Str("provider", bp.Name()).Logger()
	if b.Token.Cancelled() || ctx.Err() != nil {
		o.stop(run, &log)
		return
	}

	attempts := 0
	assets, err := retry.Do(ctx, func(ctx context.Context) ([]image.Asset, error) {
		attempts++
		return bp.GenerateBatch(ctx, b.Requests[0], len(b.Requests), credential)
	}, o.retryOptions(b.Token, &log)...)

	if b.Token.Cancelled() {
		o.stop(run, &log)
		return
	}
	for i := range b.Requests {
		switch {
		case err != nil:
			o.commit(run, i, nil, err, attempts, &log)
		case i < len(assets):
			o.commit(run, i, assets[i:i+1], nil, attempts, &log)
		default:
			o.commit(run, i, nil, image.Classify(fmt.Errorf("%w: provider returned %d of %d images", image.ErrMalformedResponse, len(assets), len(b.Requests))), attempts, &log)
		}
	}
	run.setState(StateCompleted)
	log.Info().Int("images", len(assets)).Msg("generation: native batch completed")
}

func (o *Orchestrator) retryOptions(token *CancelToken, log *infra.Logger) []retry.Option {
	opts := []retry.Option{retry.WithSleeper(o.sleeper), retry.WithLogger(log)}
	opts = append(opts, o.retryOpts...)
	return append(opts, retry.WithCanceller(token))
}

func (o *Orchestrator) commit(run *Run, i int, assets []image.Asset, err error, attempts int, log *infra.Logger) {
	run.commit(i, func(res *Result) {
		res.Attempts = attempts
		switch {
		case err == nil && len(assets) > 0:
			asset := assets[0]
			res.Status = StatusSuccess
			res.Image = &asset
		case errors.Is(err, retry.ErrCancelled):
			res.Status = StatusError
			res.Reason = ReasonCancelled
		case err == nil:
			res.Status = StatusError
			res.Reason = image.ErrMalformedResponse.Error()
		default:
			res.Status = StatusError
			res.Reason = reason(err)
		}
		ev := log.Debug()
		if res.Status == StatusError {
			ev = log.Warn().Str("reason", res.Reason)
		}
		ev.Str("item_id", res.ID).
			Int("attempt", attempts).
			Str("status", string(res.Status)).
			Msg("generation: item finished")
	})
}

func (o *Orchestrator) stop(run *Run, log *infra.Logger) {
	n := run.cancelPending()
	run.setState(StateCancelled)
	log.Info().Int("cancelled_items", n).Msg("generation: batch cancelled")
}

func reason(err error) string {
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		err = exhausted.Last
	}
	if pe := image.Classify(err); pe != nil && pe.Message != "" {
		return pe.Message
	}
	return err.Error()
}

// uniform reports whether every request asks for the same image, which a
// native batch call needs.
func uniform(reqs []image.Request) bool {
	first := reqs[0]
	for _, r := range reqs[1:] {
		if r.Prompt != first.Prompt || r.AspectRatio != first.AspectRatio || r.Resolution != first.Resolution || len(r.References) > 0 {
			return false
		}
	}
	return len(first.References) == 0
}
