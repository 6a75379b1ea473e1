// Package duplicate implements the geospatial + textual-similarity duplicate
// check invoked at intake, and the community upvote counter. The bounding-box
// prefilter is coordinate-only: intake runs the duplicate check before the AI
// classifier has assigned a category, so there is no category to narrow by.
package duplicate

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"grievance/internal/clock"
	"grievance/internal/grievance"
)

const earthRadiusMeters = 6371000.0

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// metersPerDegreeLat is the constant used to turn a radius in meters into a
// latitude/longitude bounding box for the repository prefilter, avoiding a
// full-table haversine scan in SQL.
const metersPerDegreeLat = 111320.0

// candidateStatuses is the fixed status set eligible for duplicate matching;
// terminal complaints never match.
var candidateStatuses = []grievance.Status{grievance.StatusFiled, grievance.StatusInProgress, grievance.StatusResolved}

// Repository is the persistence surface the resolver needs.
type Repository interface {
	CandidatesInBoundingBox(ctx context.Context, latMin, latMax, lngMin, lngMax float64, statuses []grievance.Status) ([]grievance.Complaint, error)
	GetComplaint(ctx context.Context, complaintID int64) (*grievance.Complaint, error)
	HasUpvote(ctx context.Context, complaintID, citizenID int64) (bool, error)
	InsertUpvote(ctx context.Context, upvote *grievance.Upvote) (newCount int, err error)
	RemoveUpvote(ctx context.Context, complaintID, citizenID int64) (newCount int, existed bool, err error)
	UpvoteCount(ctx context.Context, complaintID int64) (int, error)
	Nearby(ctx context.Context, latMin, latMax, lngMin, lngMax float64, limit int) ([]grievance.Complaint, error)
	Trending(ctx context.Context, limit int) ([]grievance.Complaint, error)
}

// Match is one duplicate candidate with its distance and similarity
// annotations.
type Match struct {
	Complaint            *grievance.Complaint
	DistanceMeters       float64
	Similarity           float64
	LikelyDuplicate      bool
	NearCertainDuplicate bool
}

// Resolver implements the duplicate check and the upvote counter.
type Resolver struct {
	repo           Repository
	clock          clock.Clock
	radiusMeters   float64
	flagThreshold  float64 // default 0.6, "likely duplicate"
	blockThreshold float64 // default 0.8, "near-certain duplicate"
}

// New builds a Resolver. radiusMeters/flagThreshold/blockThreshold come from
// config.Config (duplicate.radius_meters, duplicate.flag_threshold,
// duplicate.block_threshold).
func New(repo Repository, clk clock.Clock, radiusMeters, flagThreshold, blockThreshold float64) *Resolver {
	return &Resolver{repo: repo, clock: clk, radiusMeters: radiusMeters, flagThreshold: flagThreshold, blockThreshold: blockThreshold}
}

// boundingBox turns a center point and a radius in meters into a
// latitude/longitude box, avoiding a full-table haversine scan in SQL. Shared
// by FindDuplicates (fixed r.radiusMeters) and Nearby (caller-supplied
// radius).
func boundingBox(lat, lng, radiusMeters float64) (latMin, latMax, lngMin, lngMax float64) {
	latDelta := radiusMeters / metersPerDegreeLat
	lngDenom := metersPerDegreeLat * math.Cos(lat*math.Pi/180)
	var lngDelta float64
	if lngDenom > 0 {
		lngDelta = radiusMeters / lngDenom
	} else {
		lngDelta = 180 // near the poles, no meaningful longitude narrowing
	}
	return lat - latDelta, lat + latDelta, lng - lngDelta, lng + lngDelta
}

// FindDuplicates runs the geospatial + textual-similarity check: candidates
// within the configured radius, scored against the candidate description,
// ordered by descending similarity, filtered to similarity >= 0.4.
func (r *Resolver) FindDuplicates(ctx context.Context, description string, lat, lng float64) ([]Match, error) {
	latMin, latMax, lngMin, lngMax := boundingBox(lat, lng, r.radiusMeters)

	candidates, err := r.repo.CandidatesInBoundingBox(ctx, latMin, latMax, lngMin, lngMax, candidateStatuses)
	if err != nil {
		return nil, grievance.Wrap(grievance.KindExternalUnavailable, "failed to load duplicate candidates", err)
	}

	var out []Match
	for i := range candidates {
		c := &candidates[i]
		if !c.Latitude.Valid || !c.Longitude.Valid {
			continue
		}
		dist := haversineMeters(lat, lng, c.Latitude.Float64, c.Longitude.Float64)
		if dist > r.radiusMeters {
			continue
		}
		sim := tokenOverlapSimilarity(description, c.Description)
		if sim < 0.4 {
			continue
		}
		out = append(out, Match{
			Complaint:            c,
			DistanceMeters:       dist,
			Similarity:           sim,
			LikelyDuplicate:      sim >= r.flagThreshold,
			NearCertainDuplicate: sim >= r.blockThreshold,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out, nil
}

// tokenOverlapSimilarity is a deterministic Jaccard coefficient over
// lower-cased, punctuation-stripped whitespace tokens.
func tokenOverlapSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f == "" {
			continue
		}
		set[f] = true
	}
	return set
}

// Upvote records citizenID's endorsement of complaintID. Fails with
// ErrConflict(SelfUpvote) if the citizen owns the complaint. If the pair
// already exists it is idempotent: it returns the current count alongside
// ErrConflict(AlreadyUpvoted) so callers that want idempotent behavior (the
// intake orchestrator's duplicate fold-in) can swallow the error and use
// the count.
func (r *Resolver) Upvote(ctx context.Context, complaintID, citizenID int64, lat, lng *float64) (int, error) {
	c, err := r.repo.GetComplaint(ctx, complaintID)
	if err != nil {
		return 0, err
	}
	if c == nil {
		return 0, grievance.NewError(grievance.KindNotFound, "complaint not found", "")
	}
	if c.CitizenID == citizenID {
		return c.UpvoteCount, grievance.NewError(grievance.KindConflict, "citizen cannot upvote their own complaint", "SelfUpvote")
	}

	exists, err := r.repo.HasUpvote(ctx, complaintID, citizenID)
	if err != nil {
		return 0, grievance.Wrap(grievance.KindExternalUnavailable, "failed to check existing upvote", err)
	}
	if exists {
		count, err := r.repo.UpvoteCount(ctx, complaintID)
		if err != nil {
			return 0, grievance.Wrap(grievance.KindExternalUnavailable, "failed to read upvote count", err)
		}
		return count, grievance.NewError(grievance.KindConflict, "citizen already upvoted this complaint", "AlreadyUpvoted")
	}

	up := &grievance.Upvote{ComplaintID: complaintID, CitizenID: citizenID, CreatedAt: r.clock.Now()}
	if lat != nil {
		up.Latitude.Float64, up.Latitude.Valid = *lat, true
	}
	if lng != nil {
		up.Longitude.Float64, up.Longitude.Valid = *lng, true
	}
	count, err := r.repo.InsertUpvote(ctx, up)
	if err != nil {
		return 0, grievance.Wrap(grievance.KindExternalUnavailable, "failed to insert upvote", err)
	}
	return count, nil
}

// RemoveUpvote is the symmetric reverse of Upvote; removing a never-recorded
// upvote is a no-op returning the current count.
func (r *Resolver) RemoveUpvote(ctx context.Context, complaintID, citizenID int64) (int, error) {
	count, existed, err := r.repo.RemoveUpvote(ctx, complaintID, citizenID)
	if err != nil {
		return 0, grievance.Wrap(grievance.KindExternalUnavailable, "failed to remove upvote", err)
	}
	_ = existed
	return count, nil
}

// Nearby answers "what's within radiusMeters of (lat,lng)". The repository
// only prefilters by bounding box (cheap in SQL); the haversine distance is
// applied here to trim the box's corners back to an actual circle.
func (r *Resolver) Nearby(ctx context.Context, lat, lng, radiusMeters float64, limit int) ([]grievance.Complaint, error) {
	latMin, latMax, lngMin, lngMax := boundingBox(lat, lng, radiusMeters)
	candidates, err := r.repo.Nearby(ctx, latMin, latMax, lngMin, lngMax, limit)
	if err != nil {
		return nil, grievance.Wrap(grievance.KindExternalUnavailable, "failed to query nearby complaints", err)
	}
	out := make([]grievance.Complaint, 0, len(candidates))
	for _, c := range candidates {
		if !c.Latitude.Valid || !c.Longitude.Valid {
			continue
		}
		if haversineMeters(lat, lng, c.Latitude.Float64, c.Longitude.Float64) <= radiusMeters {
			out = append(out, c)
		}
	}
	return out, nil
}

// Trending answers "top N by upvote count".
func (r *Resolver) Trending(ctx context.Context, limit int) ([]grievance.Complaint, error) {
	return r.repo.Trending(ctx, limit)
}
