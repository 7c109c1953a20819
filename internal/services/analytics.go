package services

import (
	"context"
	"sort"
	"strings"

	"github.com/AnshRaj112/serenify-journal/internal/models"
)

var (
	positiveEmotions = map[string]struct{}{"optimistic": {}, "happy": {}, "excited": {}}
	negativeEmotions = map[string]struct{}{"sad": {}, "angry": {}, "frustrated": {}}
)

// EntryLister is the read side Analytics aggregates over.
type EntryLister interface {
	List(ctx context.Context, userID string, q models.EntryQuery) ([]models.Entry, error)
}

// Analytics derives dashboard statistics from a user's entries.
type Analytics struct {
	entries EntryLister
}

func NewAnalytics(entries EntryLister) *Analytics {
	return &Analytics{entries: entries}
}

// EmotionStats counts every emotion occurrence across all of the user's entries.
func (a *Analytics) EmotionStats(ctx context.Context, userID string) (map[string]int, error) {
	return a.EmotionStatsFor(ctx, userID, models.EntryQuery{})
}

// EmotionStatsFor is EmotionStats restricted to the entries q selects.
func (a *Analytics) EmotionStatsFor(ctx context.Context, userID string, q models.EntryQuery) (map[string]int, error) {
	entries, err := a.entries.List(ctx, userID, q)
	if err != nil {
		return nil, err
	}
	return CountEmotions(entries), nil
}

// PeopleStats summarizes who the user writes about, most mentioned first.
func (a *Analytics) PeopleStats(ctx context.Context, userID string) ([]models.PersonStat, error) {
	return a.PeopleStatsFor(ctx, userID, models.EntryQuery{})
}

// PeopleStatsFor is PeopleStats restricted to the entries q selects.
func (a *Analytics) PeopleStatsFor(ctx context.Context, userID string, q models.EntryQuery) ([]models.PersonStat, error) {
	entries, err := a.entries.List(ctx, userID, q)
	if err != nil {
		return nil, err
	}

	// Listings are newest first; walk oldest first so later entries set the sentiment.
	chronological := make([]models.Entry, len(entries))
	for i, e := range entries {
		chronological[len(entries)-1-i] = e
	}
	return SummarizePeople(chronological), nil
}

// CountEmotions tallies emotions. An emotion listed twice on one entry counts twice.
func CountEmotions(entries []models.Entry) map[string]int {
	counts := make(map[string]int)
	for _, e := range entries {
		for _, emotion := range e.Emotions {
			counts[emotion]++
		}
	}
	return counts
}

// SortedEmotionCounts orders counts by frequency, then emotion name.
func SortedEmotionCounts(counts map[string]int) []models.EmotionCount {
	out := make([]models.EmotionCount, 0, len(counts))
	for emotion, count := range counts {
		out = append(out, models.EmotionCount{Emotion: emotion, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Emotion < out[j].Emotion
	})
	return out
}

// SummarizePeople counts the entries each person appears in, walking entries
// in the given order. A person's sentiment starts as mixed and is overwritten
// by every entry whose emotions are only positive or only negative.
func SummarizePeople(entries []models.Entry) []models.PersonStat {
	stats := make(map[string]*models.PersonStat)

	for _, e := range entries {
		names := e.People.Names()
		if len(names) == 0 {
			continue
		}
		sentiment, decisive := entrySentiment(e.Emotions)

		for _, name := range names {
			stat, ok := stats[name]
			if !ok {
				stat = &models.PersonStat{Name: name, Sentiment: models.SentimentMixed}
				stats[name] = stat
			}
			stat.Count++
			if decisive {
				stat.Sentiment = sentiment
			}
		}
	}

	out := make([]models.PersonStat, 0, len(stats))
	for _, stat := range stats {
		out = append(out, *stat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// entrySentiment reports the label for an entry's emotions and whether the
// entry is one-sided enough to set it.
func entrySentiment(emotions []string) (models.Sentiment, bool) {
	var positive, negative bool
	for _, emotion := range emotions {
		key := strings.ToLower(strings.TrimSpace(emotion))
		if _, ok := positiveEmotions[key]; ok {
			positive = true
		}
		if _, ok := negativeEmotions[key]; ok {
			negative = true
		}
	}

	switch {
	case positive && !negative:
		return models.SentimentPositive, true
	case negative && !positive:
		return models.SentimentNegative, true
	default:
		return "", false
	}
}
