package pipeline

import (
	"fmt"
	"time"

	"jortega/reviewscout/models"
)

// Analyzer derives an overall verdict for a business from its aggregated
// review stats. The topic lists are fixed placeholders until a language
// model backs this step.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

func (a *Analyzer) Analyze(businessName string, stats models.Stats) models.ReviewAnalysis {
	sentiment := "mixed"
	switch {
	case stats.AvgRating >= 4.0:
		sentiment = "positive"
	case stats.AvgRating <= 2.5:
		sentiment = "negative"
	}

	return models.ReviewAnalysis{
		OverallSentiment: sentiment,
		MainTopics:       []string{"service", "food quality", "waiting time"},
		Strengths:        []string{"Friendly staff", "Consistent quality"},
		Weaknesses:       []string{"Long waiting times in peak hours"},
		SuggestedOwnerReply: fmt.Sprintf(
			"Thank you for your feedback about %s. We appreciate your comments and we are working on improvements.",
			businessName,
		),
		Stats:     stats,
		CreatedAt: time.Now().UTC(),
	}
}
