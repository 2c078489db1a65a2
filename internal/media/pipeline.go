// Package media downloads message attachments through the automation host:
// resolve the media if the session has not yet fetched it, then hand the
// decryption to the host and wrap the result as a MediaPayload.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/wppweb/internal/errs"
	"github.com/matheus3301/wppweb/internal/host"
	"github.com/matheus3301/wppweb/internal/metrics"
	"github.com/matheus3301/wppweb/internal/model"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// Media stages reported by the session.
const (
	StageResolved = "RESOLVED"
	stageError    = "ERROR"
)

var errUnresolved = errors.New("media not resolved")

// Policy bounds the resolution retry.
type Policy struct {
	// MaxAttempts is how many remote resolution attempts are made for media that is
	// not yet resolved. Values below one mean one.
	MaxAttempts int
	// Delay separates attempts after the first.
	Delay time.Duration
	// RemoteRetries is passed to the session's own download routine.
	RemoteRetries int
}

// DefaultPolicy makes a single resolution attempt.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 1, Delay: 250 * time.Millisecond, RemoteRetries: 1}
}

// Pipeline downloads media for messages.
type Pipeline struct {
	host    host.Host
	logger  *zap.Logger
	metrics *metrics.Metrics
	policy  Policy
}

// NewPipeline creates a media pipeline.
func NewPipeline(h host.Host, policy Policy, m *metrics.Metrics, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Delay <= 0 {
		policy.Delay = time.Nanosecond
	}
	return &Pipeline{host: h, logger: logger, metrics: m, policy: policy}
}

// Download returns the decrypted attachment of msg. It returns (nil, nil) without
// any remote call when msg has no media, and (nil, nil) when the media cannot be
// resolved within the policy. Only host failures are errors.
func (p *Pipeline) Download(ctx context.Context, msg model.Message) (*model.MediaPayload, error) {
	if !msg.HasMedia() {
		p.metrics.MediaOutcome(metrics.MediaNoMedia)
		return nil, nil
	}
	id := msg.ID.String()
	log := p.logger.With(zap.String("message", id))

	stage, err := p.stage(ctx, id)
	if err != nil {
		p.metrics.MediaOutcome(metrics.MediaError)
		return nil, err
	}
	if stage != StageResolved && !strings.Contains(stage, stageError) {
		stage, err = p.resolve(ctx, id, log)
		switch {
		case errors.Is(err, errUnresolved):
			log.Debug("media still unresolved", zap.String("stage", stage), zap.Int("attempts", p.policy.MaxAttempts))
			p.metrics.MediaOutcome(metrics.MediaUnresolvable)
			return nil, nil
		case err != nil:
			p.metrics.MediaOutcome(metrics.MediaError)
			return nil, err
		}
	}
	if strings.Contains(stage, stageError) {
		log.Debug("media unavailable", zap.String("stage", stage))
		p.metrics.MediaOutcome(metrics.MediaUnresolvable)
		return nil, nil
	}

	res, err := p.host.Evaluate(ctx, host.QueryMediaDecrypt, id)
	if err != nil {
		p.metrics.MediaOutcome(metrics.MediaError)
		return nil, fmt.Errorf("decrypt media of %s: %w", id, err)
	}
	if host.IsNull(res) {
		p.metrics.MediaOutcome(metrics.MediaUnresolvable)
		return nil, nil
	}
	var payload model.MediaPayload
	if err := json.Unmarshal(res, &payload); err != nil {
		p.metrics.MediaOutcome(metrics.MediaError)
		return nil, fmt.Errorf("decode media of %s: %w", id, errs.Malformed("media", "data"))
	}
	if payload.Data == "" {
		p.metrics.MediaOutcome(metrics.MediaUnresolvable)
		return nil, nil
	}
	p.metrics.MediaOutcome(metrics.MediaResolved)
	return &payload, nil
}

// resolve asks the session to fetch the media, re-reading the stage after every
// attempt, until it settles or the attempts run out.
func (p *Pipeline) resolve(ctx context.Context, id string, log *zap.Logger) (string, error) {
	var stage string
	backoff := retry.WithMaxRetries(uint64(p.policy.MaxAttempts-1), retry.NewConstant(p.policy.Delay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		p.metrics.MediaResolveAttempt()
		if _, err := p.host.Evaluate(ctx, host.QueryMediaResolve, id, p.policy.RemoteRetries); err != nil {
			return fmt.Errorf("resolve media of %s: %w", id, err)
		}
		var err error
		stage, err = p.stage(ctx, id)
		if err != nil {
			return err
		}
		log.Debug("media resolve attempt", zap.String("stage", stage))
		if stage == StageResolved || strings.Contains(stage, stageError) {
			return nil
		}
		return retry.RetryableError(errUnresolved)
	})
	return stage, err
}

func (p *Pipeline) stage(ctx context.Context, id string) (string, error) {
	res, err := p.host.Evaluate(ctx, host.QueryMediaStage, id)
	if err != nil {
		return "", fmt.Errorf("read media stage of %s: %w", id, err)
	}
	if host.IsNull(res) {
		return "", fmt.Errorf("read media stage of %s: %w", id, errs.ErrNotFound)
	}
	var stage string
	if err := json.Unmarshal(res, &stage); err != nil {
		return "", fmt.Errorf("read media stage of %s: %w", id, errs.Malformed("media", "mediaStage"))
	}
	return stage, nil
}
