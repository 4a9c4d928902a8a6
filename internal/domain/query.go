package domain

import "time"

// Query is a user question routed to an agent.
type Query struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channelId"`
	ChatID    string    `json:"chatId"`
	From      string    `json:"from"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
