package models

import "time"

// Conversation is a direct thread between exactly two accounts.
// The participant pair is stored in ascending account id order so the
// unique index catches both orientations.
type Conversation struct {
	BaseModel

	Participant1ID uint       `json:"participant_1_id" gorm:"uniqueIndex:idx_conversation_pair"`
	Participant2ID uint       `json:"participant_2_id" gorm:"uniqueIndex:idx_conversation_pair"`
	LastMessageAt  *time.Time `json:"last_message_at"`

	Participant1 Account `json:"participant_1" gorm:"foreignKey:Participant1ID"`
	Participant2 Account `json:"participant_2" gorm:"foreignKey:Participant2ID"`
}

// OtherParticipant returns the peer of the given account in this thread.
func (v Conversation) OtherParticipant(accountId uint) uint {
	if v.Participant1ID == accountId {
		return v.Participant2ID
	}
	return v.Participant1ID
}

func (v Conversation) HasParticipant(accountId uint) bool {
	return v.Participant1ID == accountId || v.Participant2ID == accountId
}
