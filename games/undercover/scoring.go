package undercover

import "sort"

// Scoring runs exactly once per finished game and updates cumulative
// counters in place.

// ScoreLine is one player's point delta for a single game, with the reasons
// spelled out for the results screen.
type ScoreLine struct {
	PlayerID string   `json:"player_id"`
	Name     string   `json:"name"`
	Points   int      `json:"points"`
	Notes    []string `json:"notes,omitempty"`
}

// Standing is one leaderboard row: cumulative score across the room's games.
type Standing struct {
	Name        string `json:"name"`
	Score       int    `json:"score"`
	GamesPlayed int    `json:"games_played"`
	GamesWon    int    `json:"games_won"`
}

func (r *Room) applyScores(winners []Role, mrWhiteGuessed bool) ([]ScoreLine, []Standing) {
	won := make(map[Role]bool, len(winners))
	for _, role := range winners {
		won[role] = true
	}

	breakdown := make([]ScoreLine, 0, len(r.Players))
	for _, p := range r.Players {
		line := ScoreLine{PlayerID: p.ID, Name: p.Name}
		isWinner := won[p.Role]

		if isWinner {
			line.Points += 10
			line.Notes = append(line.Notes, "on the winning side")
			if p.Alive {
				line.Points += 5
				line.Notes = append(line.Notes, "survived to the end")
			}
			if p.Role == RoleMrWhite && mrWhiteGuessed {
				line.Points += 5
				line.Notes = append(line.Notes, "guessed the word")
			}
		} else if (p.Role == RoleUndercover || p.Role == RoleMrWhite) && p.Alive {
			line.Points += 2
			line.Notes = append(line.Notes, "bad guy survived to the end")
		}

		if p.Special == SpecialJoyFool && p.ID == r.FirstEliminatedID {
			line.Points += 4
			line.Notes = append(line.Notes, "joy fool went out first")
		}

		// The duel only pays out if it resolved: somebody went down first.
		if p.Special == SpecialDuelist && r.FirstDuelistDownID != "" {
			if p.ID == r.FirstDuelistDownID {
				line.Points -= 2
				line.Notes = append(line.Notes, "lost the duel")
			} else {
				line.Points += 2
				line.Notes = append(line.Notes, "won the duel")
			}
		}

		p.Score += line.Points
		p.GamesPlayed++
		if isWinner {
			p.GamesWon++
		}
		breakdown = append(breakdown, line)
	}

	return breakdown, r.Leaderboard()
}

// Leaderboard returns the roster sorted by cumulative score, highest first.
// Ties keep seating order.
func (r *Room) Leaderboard() []Standing {
	standings := make([]Standing, 0, len(r.Players))
	for _, p := range r.Players {
		standings = append(standings, Standing{
			Name:        p.Name,
			Score:       p.Score,
			GamesPlayed: p.GamesPlayed,
			GamesWon:    p.GamesWon,
		})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Score > standings[j].Score
	})
	return standings
}
