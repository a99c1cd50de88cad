package enrich

import (
	"math"

	"github.com/sells-group/empresas-cli/internal/model"
)

// DefaultRelevantFields are the columns counted by Completeness.
var DefaultRelevantFields = []string{
	model.ColGeneralManagerNames,
	model.ColGeneralManagerSurnames,
	model.ColFinanceManagerNames,
	model.ColFinanceManagerSurnames,
	model.ColCity,
	model.ColDANECode,
	model.ColPhone1,
}

// Completeness returns the percentage of fields that are present and not
// blank in rec, rounded to two decimals. A field missing from the table
// counts as blank.
func Completeness(rec model.Record, fields []string) float64 {
	if len(fields) == 0 {
		return 0
	}
	filled := 0
	for _, f := range fields {
		if !rec.Get(f).Blank() {
			filled++
		}
	}
	return round2(float64(filled) / float64(len(fields)) * 100)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// Risk score bounds and the base every record starts from.
const (
	MinRiskScore  = 0
	MaxRiskScore  = 10
	BaseRiskScore = 5
)

// Signals are the per-record inputs of RiskScore.
type Signals struct {
	Completeness float64
	Region       model.Region
	Size         model.SizeCategory
	HighRisk     bool
}

// RiskScore scores a record from its signals:
//   - +2 if completeness is below 60, else +1 if below 80
//   - +2 if the region is high risk, else +1 if it is OTHER
//   - +1 if the company is SMALL
//
// The result is clamped to [MinRiskScore, MaxRiskScore].
func RiskScore(s Signals) int {
	score := BaseRiskScore
	switch {
	case s.Completeness < 60:
		score += 2
	case s.Completeness < 80:
		score++
	}
	switch {
	case s.HighRisk:
		score += 2
	case s.Region == model.RegionOther:
		score++
	}
	if s.Size == model.SizeSmall {
		score++
	}
	return min(max(score, MinRiskScore), MaxRiskScore)
}

// RiskLevelFor buckets a score with the edges {0, 3, 6, 9, 10}; each bucket
// includes its upper edge and LOW also takes 0.
func RiskLevelFor(score int) model.RiskLevel {
	switch {
	case score <= 3:
		return model.RiskLow
	case score <= 6:
		return model.RiskMedium
	case score <= 9:
		return model.RiskHigh
	default:
		return model.RiskCritical
	}
}
