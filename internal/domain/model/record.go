package model

import "github.com/google/uuid"

// IssueKind classifies a per-player problem recorded during a run.
type IssueKind string

// Issue kinds. None of them abort a run.
const (
	IssueInsufficientData IssueKind = "insufficient_data"
	IssueTimeout          IssueKind = "timeout"
	IssueDuplicate        IssueKind = "duplicate"
	IssueLowConfidence    IssueKind = "low_confidence"
	IssueModelDegraded    IssueKind = "model_degraded"
)

// Issue is a per-player problem.
type Issue struct {
	PlayerID  string    `json:"player_id"`
	Domain    Domain    `json:"domain"`
	Kind      IssueKind `json:"kind"`
	Component string    `json:"component,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// ProjectionRecord is the published output for one player key. Absent scores are nil.
type ProjectionRecord struct {
	RunDate      string `json:"run_date"`
	ModelVersion string `json:"model_version"`
	PlayerID     string `json:"player_id"`
	Domain       Domain `json:"domain"`

	SleeperScore        *float64 `json:"sleeper_score,omitempty"`
	BustScore           *float64 `json:"bust_score,omitempty"`
	RegressionDirection *float64 `json:"regression_direction,omitempty"`
	RegressionMagnitude *float64 `json:"regression_magnitude,omitempty"`
	ConsistencyScore    *float64 `json:"consistency_score,omitempty"`
	ImprovementScore    *float64 `json:"improvement_score,omitempty"`
	AIValueScore        *float64 `json:"ai_value_score,omitempty"`
	Confidence          *float64 `json:"confidence,omitempty"`

	ShapExplanations         map[string][]Contribution `json:"shap_explanations,omitempty"`
	StatConsistencyBreakdown *ConsistencyBreakdown     `json:"stat_consistency_breakdown,omitempty"`
	StatImprovementBreakdown *ImprovementBreakdown     `json:"stat_improvement_breakdown,omitempty"`

	AuctionValue      *float64           `json:"auction_value,omitempty"`
	DynastyValue      *float64           `json:"dynasty_value,omitempty"`
	SurplusValue      *float64           `json:"surplus_value,omitempty"`
	MarcelProjections map[string]float64 `json:"marcel_projections,omitempty"`

	Components []ComponentValue `json:"components,omitempty"`
	Issues     []Issue          `json:"issues,omitempty"`
}

// Key returns the record's player key.
func (r ProjectionRecord) Key() PlayerKey {
	return PlayerKey{PlayerID: r.PlayerID, Domain: r.Domain}
}

// Score returns the value used for ranking; records without a composite rank last.
func (r ProjectionRecord) Score() float64 {
	if r.AIValueScore == nil {
		return -1
	}
	return *r.AIValueScore
}

// RunMeta identifies a published run.
type RunMeta struct {
	RunID        string      `json:"run_id"`
	RunDate      string      `json:"run_date"`
	ModelVersion string      `json:"model_version"`
	EvalSeason   int         `json:"eval_season"`
	League       ScoringType `json:"league"`
	Players      int         `json:"players"`
	Degraded     []string    `json:"degraded,omitempty"`
}

var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("valuator.run"))

// NewRunID derives the run id from the run date and model version, so a rerun of the same
// inputs names the same run.
func NewRunID(runDate, modelVersion string) string {
	return uuid.NewSHA1(runNamespace, []byte(runDate+"|"+modelVersion)).String()
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
