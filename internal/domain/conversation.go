package domain

// ConversationTurn is one completed question/answer exchange
type ConversationTurn struct {
	UserText      string `json:"userText"`
	AssistantText string `json:"assistantText"`
}

// AnswerKind classifies a generated answer
type AnswerKind string

const (
	AnswerNormal   AnswerKind = "answer"
	AnswerOffTopic AnswerKind = "off_topic"
	AnswerNoData   AnswerKind = "no_data"
)

// Sentinels the answer generator prefixes to classified replies.
const (
	SentinelOffTopic = "[OFF_TOPIC]"
	SentinelNoData   = "[NO_DATA]"
)
