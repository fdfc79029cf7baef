package pipeline

import (
	"sort"
	"strings"

	"freshscan/internal/model"
)

const (
	freshPrefix  = "Fresh"
	rottenPrefix = "Rotten"
)

// Summarize groups a detection set into fresh and rotten items. Labels with
// neither prefix only count toward the total.
func Summarize(set *model.DetectionSet) model.Summary {
	summary := model.Summary{
		FreshItems:  []model.Item{},
		RottenItems: []model.Item{},
		Ingredients: []string{},
	}
	if set == nil {
		return summary
	}

	unique := make(map[string]bool)
	for _, pred := range set.Predictions {
		switch {
		case strings.HasPrefix(pred.Label, freshPrefix):
			name := strings.TrimSpace(strings.TrimPrefix(pred.Label, freshPrefix))
			summary.FreshItems = append(summary.FreshItems, model.Item{Name: name, Confidence: pred.Confidence, BBox: pred.BBox})
			if name != "" {
				unique[strings.ToLower(name)] = true
			}
		case strings.HasPrefix(pred.Label, rottenPrefix):
			name := strings.TrimSpace(strings.TrimPrefix(pred.Label, rottenPrefix))
			summary.RottenItems = append(summary.RottenItems, model.Item{Name: name, Confidence: pred.Confidence, BBox: pred.BBox})
		}
	}

	for name := range unique {
		summary.Ingredients = append(summary.Ingredients, name)
	}
	sort.Strings(summary.Ingredients)

	summary.Total = len(set.Predictions)
	summary.FreshCount = len(summary.FreshItems)
	summary.RottenCount = len(summary.RottenItems)
	return summary
}

// Freshness returns "fresh", "rotten" or "" for a label.
func Freshness(label string) string {
	switch {
	case strings.HasPrefix(label, freshPrefix):
		return "fresh"
	case strings.HasPrefix(label, rottenPrefix):
		return "rotten"
	}
	return ""
}
