package domain

import (
	"time"
)

// FeedbackCategories lists the five scoring categories in the fixed order
// every feedback record must carry.
var FeedbackCategories = [5]string{
	"Communication Skills",
	"Technical Knowledge",
	"Problem Solving",
	"Cultural Fit",
	"Confidence and Clarity",
}

// CategoryScore is one scored dimension of an interview performance.
type CategoryScore struct {
	Name    string `json:"categoryName"`
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

// Feedback is the structured scoring object produced once per completed
// interview session. Scores are integers in [0,100]; CategoryScores holds
// the five FeedbackCategories in order.
type Feedback struct {
	ID               string          `json:"id"`
	InterviewID      string          `json:"interviewId"`
	UserID           string          `json:"userId"`
	OverallScore     int             `json:"overallScore"`
	CategoryScores   []CategoryScore `json:"categoryScores"`
	Strengths        []string        `json:"strengths"`
	ImprovementAreas []string        `json:"improvementAreas"`
	Summary          string          `json:"summary"`
	CreatedAt        time.Time       `json:"createdAt"`
}
