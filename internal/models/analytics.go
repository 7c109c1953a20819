package models

// Sentiment is the coarse label attached to a mentioned person.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentMixed    Sentiment = "mixed"
)

// PersonStat is how often a person is mentioned and the label from the
// most recent entry whose emotions were one-sided.
type PersonStat struct {
	Name      string    `json:"name"`
	Count     int       `json:"count"`
	Sentiment Sentiment `json:"sentiment"`
}

type EmotionCount struct {
	Emotion string `json:"emotion"`
	Count   int    `json:"count"`
}
