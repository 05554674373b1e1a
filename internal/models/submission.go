package models

// SubmitRequest is a learner's attempt at a stage
type SubmitRequest struct {
	StageID   int    `json:"stageId"`
	UserCode  string `json:"userCode"`
	SessionID string `json:"sessionId,omitempty"`
}

// LintingDetails is the diagnostic breakdown returned with a submission
type LintingDetails struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Score    int      `json:"score"`
	MaxScore int      `json:"maxScore"`
}

// SubmitResponse is the verdict returned for a submission
type SubmitResponse struct {
	IsCorrect      bool           `json:"isCorrect"`
	StageID        int            `json:"stageId"`
	Points         int            `json:"points"`
	Difficulty     Difficulty     `json:"difficulty"`
	Hint           string         `json:"hint,omitempty"`
	Feedback       string         `json:"feedback"`
	LintingDetails LintingDetails `json:"lintingDetails"`
}
