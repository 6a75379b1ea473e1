package external

import (
	"context"
	"strings"

	"grievance/internal/grievance"
)

// KeywordOracle is a deterministic, dependency-free AIOracle: it classifies
// a submission's category by keyword match against its description. It
// stands in for the real classifier a production deployment wires behind
// the same interface; DegradingAIOracle wraps it identically either way.
type KeywordOracle struct{}

func NewKeywordOracle() *KeywordOracle { return &KeywordOracle{} }

// categoryKeywords is an ordered list, not a map: ties in hit count break
// toward the earlier entry, so classification is stable run to run.
var categoryKeywords = []struct {
	category grievance.Category
	keywords []string
}{
	{grievance.CategoryPothole, []string{"pothole", "road damage", "broken road", "crater"}},
	{grievance.CategoryStreetlight, []string{"streetlight", "street light", "lamp post", "dark street"}},
	{grievance.CategoryWaterShortage, []string{"water shortage", "no water", "water supply", "tap dry"}},
	{grievance.CategorySewerDrainage, []string{"sewer", "drain", "drainage", "overflow", "manhole"}},
	{grievance.CategoryGarbage, []string{"garbage", "trash", "waste", "litter", "dump"}},
	{grievance.CategoryTrafficSignals, []string{"traffic signal", "traffic light", "signal not working"}},
	{grievance.CategoryParkMaintenance, []string{"park", "playground", "garden maintenance"}},
	{grievance.CategoryElectricalDamage, []string{"electrical", "wire", "transformer", "power line", "shock"}},
}

var urgentKeywords = []string{"urgent", "emergency", "danger", "injured", "fire", "collapse"}

// Analyze never fails: an unmatched description degrades to OTHER/LOW at
// confidence 0, the same fallback DegradingAIOracle applies on a real
// provider's error, so the two compose without a double-fallback case.
func (k *KeywordOracle) Analyze(ctx context.Context, text string, imageBytes []byte, imageMIME string) (AIDecision, error) {
	lower := strings.ToLower(text)

	var best grievance.Category
	bestHits := 0
	for _, entry := range categoryKeywords {
		hits := 0
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			best = entry.category
		}
	}

	if bestHits == 0 {
		return AIDecision{
			Category:   grievance.CategoryOther,
			Priority:   grievance.PriorityLow,
			SLADays:    14,
			Reasoning:  "no category keyword matched the description",
			Confidence: 0,
		}, nil
	}

	priority := grievance.PriorityMedium
	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			priority = grievance.PriorityHigh
			break
		}
	}
	if len(imageBytes) > 0 {
		priority = priority.Upgrade()
	}

	confidence := 0.5 + 0.1*float64(bestHits)
	if confidence > 0.95 {
		confidence = 0.95
	}

	return AIDecision{
		Category:   best,
		Priority:   priority,
		SLADays:    0, // 0 signals "use the category's default SLA" to complaint.Engine
		Reasoning:  "classified by keyword match against description",
		Confidence: confidence,
	}, nil
}
