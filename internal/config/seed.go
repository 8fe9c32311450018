package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"team-event-service/internal/domain"
)

// Seed is the roster and question bank loaded by the seed command.
type Seed struct {
	Participants []SeedParticipant    `yaml:"participants"`
	Questions    []domain.QuizQuestion `yaml:"questions"`
}

// SeedParticipant is a roster line; participants are present unless marked absent.
type SeedParticipant struct {
	ID     int    `yaml:"id"`
	Name   string `yaml:"name"`
	Team   int    `yaml:"team"`
	Absent bool   `yaml:"absent"`
}

// LoadSeed reads and validates a seed file.
func LoadSeed(path string) (Seed, error) {
	var seed Seed
	data, err := os.ReadFile(path)
	if err != nil {
		return seed, err
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return seed, err
	}
	ids := make(map[int]struct{}, len(seed.Participants))
	for _, p := range seed.Participants {
		if _, dup := ids[p.ID]; dup {
			return seed, fmt.Errorf("duplicate participant id %d", p.ID)
		}
		ids[p.ID] = struct{}{}
		if p.Team <= 0 {
			return seed, fmt.Errorf("participant %d: team must be positive", p.ID)
		}
	}
	for _, q := range seed.Questions {
		if q.ID == "" {
			return seed, fmt.Errorf("question without id")
		}
		if !q.Correct.Valid() {
			return seed, fmt.Errorf("question %s: invalid correct option %q", q.ID, q.Correct)
		}
	}
	return seed, nil
}

// Roster converts seed lines to participants.
func (s Seed) Roster() []domain.Participant {
	out := make([]domain.Participant, 0, len(s.Participants))
	for _, p := range s.Participants {
		out = append(out, domain.Participant{ID: p.ID, Name: p.Name, TeamID: p.Team, Present: !p.Absent})
	}
	return out
}
