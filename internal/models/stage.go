package models

import "fmt"

// Difficulty is the coarse difficulty band of a stage
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// IsValid reports whether d is one of the known bands
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Stage is one exercise of the learning track
type Stage struct {
	ID          int        `yaml:"id" json:"id"`
	Title       string     `yaml:"title" json:"title"`
	Description string     `yaml:"description" json:"description"`
	StarterCode string     `yaml:"starter_code" json:"starterCode"`
	Solution    string     `yaml:"solution" json:"-"` // Never sent to learners
	Hint        string     `yaml:"hint" json:"hint,omitempty"`
	Difficulty  Difficulty `yaml:"difficulty" json:"difficulty"`
	Points      int        `yaml:"points" json:"points"`
	IsActive    bool       `yaml:"active" json:"isActive"`
}

// Validate checks the fields a stage definition must carry
func (s *Stage) Validate() error {
	if s.ID <= 0 {
		return fmt.Errorf("stage id must be positive, got %d", s.ID)
	}
	if s.Title == "" {
		return fmt.Errorf("stage %d: title is required", s.ID)
	}
	if s.Solution == "" {
		return fmt.Errorf("stage %d: solution is required", s.ID)
	}
	if !s.Difficulty.IsValid() {
		return fmt.Errorf("stage %d: invalid difficulty %q", s.ID, s.Difficulty)
	}
	if s.Points <= 0 {
		return fmt.Errorf("stage %d: points must be positive, got %d", s.ID, s.Points)
	}
	return nil
}
