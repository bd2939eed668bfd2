package domain

// Outcome is the single result a team takes from a term
type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeDraw Outcome = "DRAW"
	OutcomeLoss Outcome = "LOSS"
	// OutcomeNone marks a team that played no games in the term
	OutcomeNone Outcome = "NONE"
)

// ParticipantStats aggregates one participant across archived terms
type ParticipantStats struct {
	ID            string       `json:"id"`
	Kind          AttendeeKind `json:"kind"`
	Name          string       `json:"name"`
	Attendance    int          `json:"attendance"`
	Wins          int          `json:"wins"`
	Draws         int          `json:"draws"`
	Losses        int          `json:"losses"`
	TotalGames    int          `json:"totalGames"`
	AttendancePct float64      `json:"attendancePct"`
	WinPct        float64      `json:"winPct"`
	LossPct       float64      `json:"lossPct"`
}

// Highlights holds the column maxima shown above the stats table
type Highlights struct {
	MaxAttendance int     `json:"maxAttendance"`
	MaxWins       int     `json:"maxWins"`
	MaxLosses     int     `json:"maxLosses"`
	MaxWinPct     float64 `json:"maxWinPct"`
	MaxLossPct    float64 `json:"maxLossPct"`
}

// StatsSummary is the payload of the event statistics endpoint
type StatsSummary struct {
	TotalArchivedTerms int                `json:"totalArchivedTerms"`
	FilledStatsCount   int                `json:"filledStatsCount"`
	Highlights         Highlights         `json:"highlights"`
	Participants       []ParticipantStats `json:"participants"`
}

// TeamOutcome pairs a team with its outcome for previews
type TeamOutcome struct {
	Name    string  `json:"name"`
	Played  int     `json:"played"`
	Outcome Outcome `json:"outcome"`
}
