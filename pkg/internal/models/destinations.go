package models

import "fmt"

type DestinationKind = uint8

const (
	DestinationChannel = DestinationKind(iota)
	DestinationConversation
)

// Destination is the exactly-one-of target of a message: either a channel
// or a direct conversation, never both. Code paths that branch on the
// target should switch on Kind instead of probing nullable columns.
type Destination struct {
	Kind DestinationKind `json:"kind"`
	ID   uint            `json:"id"`
}

func ChannelDestination(id uint) Destination {
	return Destination{Kind: DestinationChannel, ID: id}
}

func ConversationDestination(id uint) Destination {
	return Destination{Kind: DestinationConversation, ID: id}
}

func (v Destination) IsChannel() bool {
	return v.Kind == DestinationChannel
}

func (v Destination) String() string {
	if v.Kind == DestinationChannel {
		return fmt.Sprintf("channel#%d", v.ID)
	}
	return fmt.Sprintf("conversation#%d", v.ID)
}
