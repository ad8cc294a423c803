package services

import (
	"fmt"

	"github.com/chorushq/chorus/pkg/internal/database"
	"github.com/chorushq/chorus/pkg/internal/models"
)

// ChannelPerm is what the access guard resolved for a caller inside a
// channel: the organization role and, when one exists, the explicit
// channel membership row.
type ChannelPerm struct {
	Role    models.OrganizationRole `json:"role"`
	IsAdmin bool                    `json:"is_admin"`
	Member  *models.ChannelMember   `json:"member,omitempty"`
}

// ResolveChannelAccess checks that the caller may see the given channel.
// It is read-only and must pass before every channel-scoped query or
// mutation. The channel is returned even when access is denied so callers
// can decide how loudly to fail.
func ResolveChannelAccess(user models.Account, channelId uint) (models.Channel, ChannelPerm, error) {
	var perm ChannelPerm

	var channel models.Channel
	if err := database.C.Where("id = ?", channelId).Preload("Category").First(&channel).Error; err != nil {
		return channel, perm, err
	}

	membership, err := GetOrganizationMember(channel.OrganizationID, user.ID)
	if err != nil {
		return channel, perm, fmt.Errorf("%w: you are not a member of this organization", ErrPermissionDenied)
	}
	perm.Role = membership.Role
	perm.IsAdmin = membership.Role == models.OrganizationRoleAdmin

	var member models.ChannelMember
	if err := database.C.Where(models.ChannelMember{
		ChannelID: channel.ID,
		AccountID: user.ID,
	}).First(&member).Error; err == nil {
		perm.Member = &member
	}

	if IsChannelPrivate(channel) && !perm.IsAdmin && perm.Member == nil {
		return channel, perm, fmt.Errorf("%w: this channel requires an explicit membership", ErrPermissionDenied)
	}

	return channel, perm, nil
}

// IsChannelPrivate treats a channel inside a private category as private
// itself.
func IsChannelPrivate(channel models.Channel) bool {
	if channel.IsPrivate {
		return true
	}
	return channel.Category != nil && channel.Category.IsPrivate
}

// ResolveConversationAccess allows only the two participants in.
func ResolveConversationAccess(user models.Account, conversationId uint) (models.Conversation, error) {
	var conversation models.Conversation
	if err := database.C.Where("id = ?", conversationId).
		Preload("Participant1").Preload("Participant2").
		First(&conversation).Error; err != nil {
		return conversation, err
	}
	if !conversation.HasParticipant(user.ID) {
		return conversation, fmt.Errorf("%w: you are not a participant of this conversation", ErrPermissionDenied)
	}
	return conversation, nil
}

// DestinationAccess is the resolved target of a message operation plus the
// permissions the caller holds there. Exactly one of Channel and
// Conversation is set on success.
type DestinationAccess struct {
	Destination  models.Destination
	Channel      *models.Channel
	Conversation *models.Conversation
	Perm         ChannelPerm
}

// DisplayText names the destination the way notification and forward
// stamps present it to humans.
func (v DestinationAccess) DisplayText(viewer models.Account) string {
	if v.Channel != nil {
		return v.Channel.Name
	}
	if v.Conversation != nil {
		peer := v.Conversation.Participant1
		if peer.ID == viewer.ID {
			peer = v.Conversation.Participant2
		}
		if len(peer.Nick) > 0 {
			return peer.Nick
		}
		return peer.Name
	}
	return "unknown"
}

// ResolveDestinationAccess dispatches the access check on the destination
// sum type. On a channel permission failure the channel is still attached
// to the result for privacy-aware callers.
func ResolveDestinationAccess(user models.Account, dest models.Destination) (DestinationAccess, error) {
	out := DestinationAccess{Destination: dest}

	switch dest.Kind {
	case models.DestinationChannel:
		channel, perm, err := ResolveChannelAccess(user, dest.ID)
		out.Perm = perm
		if channel.ID != 0 {
			out.Channel = &channel
		}
		if err != nil {
			return out, err
		}
	case models.DestinationConversation:
		conversation, err := ResolveConversationAccess(user, dest.ID)
		if err != nil {
			return out, err
		}
		out.Conversation = &conversation
	default:
		return out, fmt.Errorf("%w: unknown destination kind", ErrInvalidRequest)
	}

	return out, nil
}
