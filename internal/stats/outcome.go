// Package stats derives per-participant attendance and match statistics from
// archived terms. Everything here is pure and deterministic.
package stats

import (
	"sort"

	"orgie/internal/domain"
)

type record struct {
	wins, draws, losses int
}

func recordOf(t domain.TeamResult) record {
	return record{wins: t.Wins, draws: t.Draws, losses: t.Losses}
}

// better orders records by wins desc, draws desc, losses asc
func better(a, b record) bool {
	if a.wins != b.wins {
		return a.wins > b.wins
	}
	if a.draws != b.draws {
		return a.draws > b.draws
	}
	return a.losses < b.losses
}

// TermOutcomes assigns one outcome per team, index aligned with teams.
//
// Teams that played no games get OutcomeNone. Among the rest, every team that
// ties the best (wins, draws, losses) record is a top team. A lone top team
// wins and everyone else loses; several top teams draw and everyone else
// loses.
func TermOutcomes(teams []domain.TeamResult) []domain.Outcome {
	outcomes := make([]domain.Outcome, len(teams))
	played := make([]int, 0, len(teams))
	for i, t := range teams {
		outcomes[i] = domain.OutcomeNone
		if t.Played() > 0 {
			played = append(played, i)
		}
	}
	if len(played) == 0 {
		return outcomes
	}

	sort.SliceStable(played, func(i, j int) bool {
		return better(recordOf(teams[played[i]]), recordOf(teams[played[j]]))
	})

	best := recordOf(teams[played[0]])
	top := 0
	for _, idx := range played {
		if recordOf(teams[idx]) == best {
			top++
		}
	}

	topOutcome := domain.OutcomeWin
	if top > 1 {
		topOutcome = domain.OutcomeDraw
	}
	for _, idx := range played {
		if recordOf(teams[idx]) == best {
			outcomes[idx] = topOutcome
		} else {
			outcomes[idx] = domain.OutcomeLoss
		}
	}
	return outcomes
}

// Preview pairs each team with its outcome
func Preview(statistics *domain.Statistics) []domain.TeamOutcome {
	if statistics == nil {
		return []domain.TeamOutcome{}
	}
	outcomes := TermOutcomes(statistics.Teams)
	out := make([]domain.TeamOutcome, len(statistics.Teams))
	for i, t := range statistics.Teams {
		out[i] = domain.TeamOutcome{Name: t.Name, Played: t.Played(), Outcome: outcomes[i]}
	}
	return out
}
