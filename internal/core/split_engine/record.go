package split_engine

import (
	"strings"

	"github.com/nvoskov/chatsplit/internal/models"
)

// BuildRecord joins a match's decoded text with its window metrics into
// one logical record. ok is false when the decoded text trims to empty;
// such occurrences are discarded rather than surfaced as errors.
func BuildRecord(m Match) (models.Message, bool) {
	text := DecodeText(m)
	if strings.TrimSpace(text) == "" {
		return models.Message{}, false
	}
	mt := ExtractMetrics(m.Window, m.KeyOffset)
	return models.Message{
		ID:             mt.ID,
		Text:           text,
		Timestamp:      mt.Timestamp,
		SenderID:       mt.SenderID,
		SenderName:     mt.SenderName,
		ReplyToID:      mt.ReplyToID,
		ViewsCount:     mt.Views,
		ReactionsCount: mt.Reactions,
	}, true
}
