package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/serenify-journal/internal/database"
	"github.com/AnshRaj112/serenify-journal/internal/models"
)

func mentioning(names ...string) models.People {
	mapping := make(map[string]json.RawMessage, len(names))
	for _, name := range names {
		mapping[name] = json.RawMessage(`{}`)
	}
	return models.People{Kind: models.PeopleMapping, Mapping: mapping}
}

func TestCountEmotions(t *testing.T) {
	entries := []models.Entry{
		{Emotions: []string{"sad", "sad"}},
		{Emotions: []string{"optimistic"}},
		{Emotions: []string{}},
	}

	assert.Equal(t, map[string]int{"sad": 2, "optimistic": 1}, CountEmotions(entries))
	assert.Equal(t, map[string]int{}, CountEmotions(nil))
}

func TestSortedEmotionCounts(t *testing.T) {
	got := SortedEmotionCounts(map[string]int{"calm": 1, "sad": 3, "angry": 1})
	assert.Equal(t, []models.EmotionCount{
		{Emotion: "sad", Count: 3},
		{Emotion: "angry", Count: 1},
		{Emotion: "calm", Count: 1},
	}, got)
}

func TestSummarizePeopleLastOneSidedEntryWins(t *testing.T) {
	entries := []models.Entry{
		{People: mentioning("Alex"), Emotions: []string{"optimistic"}},
		{People: mentioning("Alex"), Emotions: []string{"sad"}},
	}

	assert.Equal(t, []models.PersonStat{
		{Name: "Alex", Count: 2, Sentiment: models.SentimentNegative},
	}, SummarizePeople(entries))
}

func TestSummarizePeopleSentimentRules(t *testing.T) {
	entries := []models.Entry{
		{People: models.PeopleFromNames("Sam"), Emotions: []string{"Happy"}},
		{People: models.PeopleFromNames("Sam", "Jo"), Emotions: []string{"happy", "angry"}},
		{People: models.PeopleFromNames("Jo"), Emotions: []string{"calm"}},
		{People: models.PeopleFromNames("Jo"), Emotions: []string{"frustrated"}},
		{People: models.PeopleFromNames("Riley", "Riley"), Emotions: nil},
		{Emotions: []string{"sad"}},
	}

	assert.Equal(t, []models.PersonStat{
		{Name: "Jo", Count: 3, Sentiment: models.SentimentNegative},
		{Name: "Sam", Count: 2, Sentiment: models.SentimentPositive},
		{Name: "Riley", Count: 1, Sentiment: models.SentimentMixed},
	}, SummarizePeople(entries))
}

func TestAnalyticsOverEntryService(t *testing.T) {
	svc := NewEntryService(database.NewMemoryStore(), EntryServiceOptions{Now: newStepClock().Now})
	analytics := NewAnalytics(svc)
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", models.EntryFields{People: mentioning("Alex"), Emotions: []string{"optimistic"}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "alice", models.EntryFields{People: mentioning("Alex"), Emotions: []string{"sad"}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "bob", models.EntryFields{People: mentioning("Alex"), Emotions: []string{"happy"}})
	require.NoError(t, err)

	people, err := analytics.PeopleStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []models.PersonStat{{Name: "Alex", Count: 2, Sentiment: models.SentimentNegative}}, people)

	emotions, err := analytics.EmotionStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"optimistic": 1, "sad": 1}, emotions)

	emotions, err = analytics.EmotionStatsFor(ctx, "alice", models.EntryQuery{Emotion: "sad"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"sad": 1}, emotions)
}

func TestAnalyticsWithoutIdentityIsEmpty(t *testing.T) {
	analytics := NewAnalytics(NewEntryService(database.NewMemoryStore(), EntryServiceOptions{}))
	ctx := context.Background()

	emotions, err := analytics.EmotionStats(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, emotions)

	people, err := analytics.PeopleStats(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, people)
}
