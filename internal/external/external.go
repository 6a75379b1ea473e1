// Package external defines the suspendable-sink interfaces the core
// consumes but does not implement: the AI classifier, object storage, and
// outbound messaging channel. Concrete implementations here are local
// stand-ins that never reach a third party (a keyword classifier, an on-disk
// object store, and a shadow messaging client that only logs each send);
// production deployments supply real adapters behind the same interfaces.
package external

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"grievance/internal/grievance"
)

// AIDecision mirrors complaint.AIDecision; duplicated here (not imported) so
// this package has no dependency on internal/complaint.
type AIDecision struct {
	Category      grievance.Category
	Priority      grievance.Priority
	SLADays       int
	Reasoning     string
	Confidence    float64
	ImageFindings *string
}

// AIOracle classifies a submission. All failures map to ExternalUnavailable
// at the call site; wrapped in DegradingAIOracle they become the
// OTHER/LOW/confidence=0 fallback instead.
type AIOracle interface {
	Analyze(ctx context.Context, text string, imageBytes []byte, imageMIME string) (AIDecision, error)
}

// ObjectStore persists opaque image bytes and returns an opaque key.
type ObjectStore interface {
	Put(ctx context.Context, bytes []byte, mime string) (key string, err error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// MessagingClient sends a one-way outbound message to a recipient's
// registered mobile channel.
type MessagingClient interface {
	Send(ctx context.Context, recipientID int64, text string) error
}

// ShadowMessagingClient logs every send instead of reaching a real
// messaging provider.
type ShadowMessagingClient struct{}

func NewShadowMessagingClient() *ShadowMessagingClient { return &ShadowMessagingClient{} }

func (s *ShadowMessagingClient) Send(ctx context.Context, recipientID int64, text string) error {
	log.Info().Int64("recipient_id", recipientID).Str("text", text).Msg("shadow messaging send")
	return nil
}

// DegradingAIOracle wraps a real AIOracle and converts any error or timeout
// into the manual-routing fallback decision instead of propagating it, so a
// dead classifier never blocks intake.
type DegradingAIOracle struct {
	inner          AIOracle
	timeout        time.Duration
	fallbackSLADay int
}

func NewDegradingAIOracle(inner AIOracle, timeout time.Duration, fallbackSLADays int) *DegradingAIOracle {
	return &DegradingAIOracle{inner: inner, timeout: timeout, fallbackSLADay: fallbackSLADays}
}

func (d *DegradingAIOracle) Analyze(ctx context.Context, text string, imageBytes []byte, imageMIME string) (AIDecision, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	decision, err := d.inner.Analyze(callCtx, text, imageBytes, imageMIME)
	if err != nil {
		log.Warn().Err(err).Msg("AI oracle call failed, degrading to manual-routing fallback")
		return AIDecision{
			Category:   grievance.CategoryOther,
			Priority:   grievance.PriorityLow,
			SLADays:    d.fallbackSLADay,
			Reasoning:  "AI classification unavailable; routed for manual review",
			Confidence: 0,
		}, nil
	}
	return decision, nil
}
