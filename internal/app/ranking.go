package app

import (
	"sort"

	"team-event-service/internal/domain"
)

// TeamTotal is a team's combined quiz and activity points.
type TeamTotal struct {
	TeamID int `json:"teamId"`
	Points int `json:"points"`
}

// Standing is a ranked team.
type Standing struct {
	TeamID int `json:"teamId"`
	Points int `json:"points"`
	Rank   int `json:"rank"`
}

// RankGroup holds every team sharing one rank.
type RankGroup struct {
	Rank  int        `json:"rank"`
	Teams []Standing `json:"teams"`
}

// Rank assigns competition ranks ("1224"): tied teams share a rank and the
// next distinct total takes its 1-based position in the sorted list.
func Rank(totals []TeamTotal) []Standing {
	sorted := make([]TeamTotal, len(totals))
	copy(sorted, totals)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Points != sorted[j].Points {
			return sorted[i].Points > sorted[j].Points
		}
		return sorted[i].TeamID < sorted[j].TeamID
	})

	out := make([]Standing, len(sorted))
	for i, t := range sorted {
		rank := i + 1
		if i > 0 && t.Points == sorted[i-1].Points {
			rank = out[i-1].Rank
		}
		out[i] = Standing{TeamID: t.TeamID, Points: t.Points, Rank: rank}
	}
	return out
}

// GroupByRank groups standings by rank, ordered by increasing rank.
func GroupByRank(standings []Standing) []RankGroup {
	byRank := make(map[int][]Standing)
	ranks := make([]int, 0)
	for _, s := range standings {
		if _, ok := byRank[s.Rank]; !ok {
			ranks = append(ranks, s.Rank)
		}
		byRank[s.Rank] = append(byRank[s.Rank], s)
	}
	sort.Ints(ranks)

	groups := make([]RankGroup, 0, len(ranks))
	for _, r := range ranks {
		teams := byRank[r]
		sort.Slice(teams, func(i, j int) bool { return teams[i].TeamID < teams[j].TeamID })
		groups = append(groups, RankGroup{Rank: r, Teams: teams})
	}
	return groups
}

// RankOneTie returns the teams sharing rank 1 when there is more than one.
// Ties further down are displayed but never trigger a tie-break.
func RankOneTie(groups []RankGroup) []int {
	if len(groups) == 0 || groups[0].Rank != 1 || len(groups[0].Teams) < 2 {
		return nil
	}
	teams := make([]int, 0, len(groups[0].Teams))
	for _, s := range groups[0].Teams {
		teams = append(teams, s.TeamID)
	}
	return teams
}

func standingsFromResults(results []domain.EventResult) []Standing {
	out := make([]Standing, 0, len(results))
	for _, r := range results {
		out = append(out, Standing{TeamID: r.TeamID, Points: r.TotalPoints, Rank: r.Rank})
	}
	return out
}

func totalsFromResults(results []domain.EventResult) []TeamTotal {
	out := make([]TeamTotal, 0, len(results))
	for _, r := range results {
		out = append(out, TeamTotal{TeamID: r.TeamID, Points: r.TotalPoints})
	}
	return out
}

// Reveal walks rank groups from last place to first, one group per call.
type Reveal struct {
	groups []RankGroup
	next   int
}

func NewReveal(groups []RankGroup) *Reveal {
	return &Reveal{groups: groups, next: len(groups) - 1}
}

// Next reveals the next group; ok is false once every group is shown.
func (r *Reveal) Next() (RankGroup, bool) {
	if r.next < 0 {
		return RankGroup{}, false
	}
	g := r.groups[r.next]
	r.next--
	return g, true
}

// Done reports whether every group has been revealed.
func (r *Reveal) Done() bool {
	return r.next < 0
}

// Revealed returns the groups shown so far, best rank first.
func (r *Reveal) Revealed() []RankGroup {
	return append([]RankGroup(nil), r.groups[r.next+1:]...)
}
