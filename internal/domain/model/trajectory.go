package model

// Trajectory grades.
const (
	GradeRising     = "rising"
	GradeAtPeak     = "at-peak"
	GradePlateau    = "plateau"
	GradeDeclining  = "declining"
	GradeLateCareer = "late-career"
)

// TrajectoryPoint is one projected season. LowerBound <= ProjectedValue <= UpperBound.
type TrajectoryPoint struct {
	Season         int     `json:"season"`
	Age            int     `json:"age"`
	ProjectedValue float64 `json:"projected_value"`
	LowerBound     float64 `json:"lower_bound"`
	UpperBound     float64 `json:"upper_bound"`
}

// TrajectoryCurve is a multi-season value projection.
type TrajectoryCurve struct {
	CurrentValue         float64           `json:"current_value"`
	Points               []TrajectoryPoint `json:"trajectory"`
	PeakSeason           int               `json:"peak_season"`
	PeakValue            float64           `json:"peak_value"`
	CareerValueRemaining float64           `json:"career_value_remaining"`
	Grade                string            `json:"trajectory_grade"`
}

// TrajectoryRecord is the published trajectory of one player key.
type TrajectoryRecord struct {
	PlayerID string `json:"player_id"`
	Domain   Domain `json:"domain"`
	TrajectoryCurve
}
