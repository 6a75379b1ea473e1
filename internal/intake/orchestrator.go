// Package intake is the end-to-end submission path from raw citizen input
// to a persisted, classified complaint: validate, upload the image, check
// for duplicates, classify, persist.
package intake

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"grievance/internal/complaint"
	"grievance/internal/duplicate"
	"grievance/internal/external"
	"grievance/internal/grievance"
)

// Request is the raw, not-yet-validated citizen submission.
type Request struct {
	CitizenID        int64    `validate:"required,gt=0"`
	Title            string   `validate:"required,min=3,max=200"`
	Description      string   `validate:"required,min=10,max=5000"`
	Location         string   `validate:"required,max=500"`
	Latitude         *float64 `validate:"omitempty,min=-90,max=90"`
	Longitude        *float64 `validate:"omitempty,min=-180,max=180"`
	ImageBytes       []byte
	ImageMIME        string
	ConsentToUpvote  bool
}

// Result is what the orchestrator returns: either a newly created complaint,
// or a reference to an existing one the caller was folded into via upvote.
type Result struct {
	Complaint       *grievance.Complaint
	FoldedIntoUpvote bool
}

// Orchestrator drives the intake pipeline.
type Orchestrator struct {
	validate *validator.Validate
	store    external.ObjectStore
	resolver *duplicate.Resolver
	oracle   external.AIOracle
	engine   *complaint.Engine
}

func New(store external.ObjectStore, resolver *duplicate.Resolver, oracle external.AIOracle, engine *complaint.Engine) *Orchestrator {
	return &Orchestrator{validate: validator.New(), store: store, resolver: resolver, oracle: oracle, engine: engine}
}

// Submit runs the intake pipeline end to end.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (*Result, error) {
	// 1. Validate.
	if err := o.validate.Struct(req); err != nil {
		return nil, grievance.Wrap(grievance.KindValidation, "invalid intake submission", err)
	}

	// 2. Upload image if present. A storage failure here is non-fatal: the
	// complaint is still created without the image.
	var imageKey *string
	if len(req.ImageBytes) > 0 {
		key, err := o.store.Put(ctx, req.ImageBytes, req.ImageMIME)
		if err != nil {
			log.Warn().Err(err).Msg("intake: image upload failed, continuing without image")
		} else {
			imageKey = &key
		}
	}

	// 3. Duplicate resolver, only meaningful with coordinates.
	if req.Latitude != nil && req.Longitude != nil {
		matches, err := o.resolver.FindDuplicates(ctx, req.Description, *req.Latitude, *req.Longitude)
		if err != nil {
			log.Warn().Err(err).Msg("intake: duplicate check failed, proceeding with normal intake")
		} else if len(matches) > 0 {
			best := matches[0]
			eligibleStatus := best.Complaint.Status == grievance.StatusFiled || best.Complaint.Status == grievance.StatusInProgress
			if best.NearCertainDuplicate && eligibleStatus && req.ConsentToUpvote {
				return o.foldIntoUpvote(ctx, best.Complaint, req)
			}
		}
	}

	// 4. AI oracle. When wrapped in DegradingAIOracle (ai.required=false)
	// failures become the OTHER/LOW/confidence=0 fallback and this error
	// path never fires; with ai.required=true the failure is fatal to intake.
	decision, err := o.oracle.Analyze(ctx, req.Description, req.ImageBytes, req.ImageMIME)
	if err != nil {
		return nil, grievance.Wrap(grievance.KindExternalUnavailable, "AI oracle call failed", err)
	}

	// 5. Persist via the Complaint Engine.
	draft := complaint.IntakeDraft{
		CitizenID:   req.CitizenID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		ImageKey:    imageKey,
	}
	if req.ImageMIME != "" && imageKey != nil {
		draft.ImageMIME = &req.ImageMIME
	}
	c, err := o.engine.CreateFromIntake(ctx, draft, complaint.AIDecision{
		Category:      decision.Category,
		Priority:      decision.Priority,
		SLADays:       decision.SLADays,
		Reasoning:     decision.Reasoning,
		Confidence:    decision.Confidence,
		ImageFindings: decision.ImageFindings,
	})
	if err != nil {
		return nil, err
	}

	// 6. Return the resulting complaint reference.
	return &Result{Complaint: c}, nil
}

// foldIntoUpvote short-circuits intake: instead of creating a new record,
// upvote the existing near-certain duplicate and return its reference.
// AlreadyUpvoted is swallowed so a repeated identical submission is
// idempotent.
func (o *Orchestrator) foldIntoUpvote(ctx context.Context, existing *grievance.Complaint, req Request) (*Result, error) {
	count, err := o.resolver.Upvote(ctx, existing.ComplaintID, req.CitizenID, req.Latitude, req.Longitude)
	if err != nil && grievance.KindOf(err) != grievance.KindConflict {
		return nil, err
	}
	folded := *existing
	folded.UpvoteCount = count
	return &Result{Complaint: &folded, FoldedIntoUpvote: true}, nil
}
