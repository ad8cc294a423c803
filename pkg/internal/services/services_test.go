package services

import (
	"os"
	"testing"
	"time"

	"github.com/chorushq/chorus/pkg/internal/database"
	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ServicesTestSuite drives the service layer against a real Postgres.
// Point TEST_DATABASE_DSN at a scratch database to run it; without one the
// whole suite skips.
type ServicesTestSuite struct {
	suite.Suite
	db *gorm.DB
}

func (suite *ServicesTestSuite) SetupSuite() {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if len(dsn) == 0 {
		dsn = "host=localhost user=postgres dbname=chorus_test sslmode=disable"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		suite.T().Skipf("Skipping service tests: database not available (%v)", err)
		return
	}

	database.C = db
	require.NoError(suite.T(), database.RunMigration(db))

	suite.db = db
}

func (suite *ServicesTestSuite) TearDownSuite() {
	if suite.db == nil {
		return
	}
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

func (suite *ServicesTestSuite) SetupTest() {
	suite.db.Exec(`TRUNCATE TABLE reactions, saved_messages, mention_read_statuses,
		channel_read_statuses, conversation_read_statuses, messages, channel_members,
		channels, channel_categories, conversations, organization_members,
		organizations, accounts RESTART IDENTITY CASCADE`)
}

func (suite *ServicesTestSuite) makeAccount(name string) models.Account {
	account, err := UpsertAccount(name, name, "")
	require.NoError(suite.T(), err)
	return account
}

func (suite *ServicesTestSuite) makeOrganization(owner models.Account, alias string) models.Organization {
	organization, err := NewOrganization(owner, alias, alias, "")
	require.NoError(suite.T(), err)
	return organization
}

func (suite *ServicesTestSuite) makeChannel(organization models.Organization, creator models.Account, alias string, mutate ...func(*models.Channel)) models.Channel {
	channel := models.Channel{
		Alias:          alias,
		Name:           alias,
		OrganizationID: organization.ID,
		AccountID:      creator.ID,
	}
	for _, fn := range mutate {
		fn(&channel)
	}
	created, err := NewChannel(channel)
	require.NoError(suite.T(), err)
	return created
}

func (suite *ServicesTestSuite) access(user models.Account, dest models.Destination) DestinationAccess {
	access, err := ResolveDestinationAccess(user, dest)
	require.NoError(suite.T(), err)
	return access
}

func (suite *ServicesTestSuite) send(user models.Account, access DestinationAccess, content string) models.Message {
	message, err := NewMessage(user, access, NewMessageOpts{Content: content})
	require.NoError(suite.T(), err)
	return message
}

func (suite *ServicesTestSuite) TestChannelAccessGuard() {
	t := suite.T()

	owner := suite.makeAccount("owner")
	member := suite.makeAccount("member")
	outsider := suite.makeAccount("outsider")
	organization := suite.makeOrganization(owner, "acme")
	_, err := AddOrganizationMember(owner, organization, member, models.OrganizationRoleMember)
	require.NoError(t, err)

	public := suite.makeChannel(organization, owner, "general")
	private := suite.makeChannel(organization, owner, "war-room", func(c *models.Channel) {
		c.IsPrivate = true
	})

	// Outsiders are stopped at the organization gate.
	_, _, err = ResolveChannelAccess(outsider, public.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// Organization membership opens public channels without a member row.
	_, perm, err := ResolveChannelAccess(member, public.ID)
	require.NoError(t, err)
	assert.Nil(t, perm.Member)
	assert.False(t, perm.IsAdmin)

	// Private channels also need an explicit membership.
	_, _, err = ResolveChannelAccess(member, private.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	require.NoError(t, AddChannelMember(member, private))
	_, perm, err = ResolveChannelAccess(member, private.ID)
	require.NoError(t, err)
	require.NotNil(t, perm.Member)

	// Admins walk in everywhere.
	_, perm, err = ResolveChannelAccess(owner, private.ID)
	require.NoError(t, err)
	assert.True(t, perm.IsAdmin)
}

func (suite *ServicesTestSuite) TestChannelMembershipLifecycle() {
	t := suite.T()

	owner := suite.makeAccount("owner")
	member := suite.makeAccount("member")
	outsider := suite.makeAccount("outsider")
	organization := suite.makeOrganization(owner, "acme")
	_, err := AddOrganizationMember(owner, organization, member, models.OrganizationRoleMember)
	require.NoError(t, err)

	channel := suite.makeChannel(organization, owner, "general")

	// Regular members can only add themselves.
	_, memberPerm, err := ResolveChannelAccess(member, channel.ID)
	require.NoError(t, err)
	err = AddChannelMemberWithCheck(owner, member, channel, memberPerm)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// Accounts outside the organization cannot be added at all.
	_, ownerPerm, err := ResolveChannelAccess(owner, channel.ID)
	require.NoError(t, err)
	err = AddChannelMemberWithCheck(outsider, owner, channel, ownerPerm)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	require.NoError(t, AddChannelMember(member, channel))
	require.NoError(t, AddChannelMember(member, channel))
	count, err := CountChannelMember(channel.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	// Leaving and coming back must work; the membership pair is unique.
	membership, err := GetChannelMember(member, channel.ID)
	require.NoError(t, err)
	require.NoError(t, RemoveChannelMember(membership, channel))
	require.NoError(t, AddChannelMember(member, channel))

	membership, err = GetChannelMember(member, channel.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotifyLevelAll, membership.Notify)
}

func (suite *ServicesTestSuite) TestConversationAccessGuard() {
	t := suite.T()

	a := suite.makeAccount("ada")
	b := suite.makeAccount("ben")
	c := suite.makeAccount("cal")

	_, err := GetOrCreateConversation(a, a)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	conversation, err := GetOrCreateConversation(a, b)
	require.NoError(t, err)

	// Opening the same pair again, in either order, lands on the same row.
	again, err := GetOrCreateConversation(b, a)
	require.NoError(t, err)
	assert.Equal(t, conversation.ID, again.ID)

	_, err = ResolveConversationAccess(c, conversation.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = ResolveConversationAccess(b, conversation.ID)
	assert.NoError(t, err)
}

func (suite *ServicesTestSuite) TestMessageSendRules() {
	t := suite.T()

	owner := suite.makeAccount("owner")
	member := suite.makeAccount("member")
	organization := suite.makeOrganization(owner, "acme")
	_, err := AddOrganizationMember(owner, organization, member, models.OrganizationRoleMember)
	require.NoError(t, err)
	channel := suite.makeChannel(organization, owner, "general")
	dest := models.ChannelDestination(channel.ID)
	access := suite.access(member, dest)

	_, err = NewMessage(member, access, NewMessageOpts{Content: ""})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = NewMessage(member, access, NewMessageOpts{Content: "   \n\t "})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	message := suite.send(member, access, "shipping @owner today")
	assert.Equal(t, []string{"owner"}, []string(message.Mentions))
	assert.NotEmpty(t, message.Uuid)

	// Sending moves the sender's own read marker.
	var status models.ChannelReadStatus
	require.NoError(t, suite.db.Where("channel_id = ? AND account_id = ?", channel.ID, member.ID).First(&status).Error)
	assert.False(t, status.LastReadAt.Before(message.CreatedAt))
}

func (suite *ServicesTestSuite) TestReadOnlyChannel() {
	t := suite.T()

	owner := suite.makeAccount("owner")
	member := suite.makeAccount("member")
	organization := suite.makeOrganization(owner, "acme")
	_, err := AddOrganizationMember(owner, organization, member, models.OrganizationRoleMember)
	require.NoError(t, err)
	channel := suite.makeChannel(organization, owner, "announcements", func(c *models.Channel) {
		c.Permission = models.ChannelPermissionReadOnly
	})
	dest := models.ChannelDestination(channel.ID)

	_, err = NewMessage(member, suite.access(member, dest), NewMessageOpts{Content: "can I post"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// Admins still can.
	_, err = NewMessage(owner, suite.access(owner, dest), NewMessageOpts{Content: "release is out"})
	assert.NoError(t, err)
}

func (suite *ServicesTestSuite) TestReplyRules() {
	t := suite.T()

	owner := suite.makeAccount("owner")
	member := suite.makeAccount("member")
	organization := suite.makeOrganization(owner, "acme")
	_, err := AddOrganizationMember(owner, organization, member, models.OrganizationRoleMember)
	require.NoError(t, err)
	channel := suite.makeChannel(organization, owner, "general")
	other := suite.makeChannel(organization, owner, "random")
	dest := models.ChannelDestination(channel.ID)

	parent := suite.send(owner, suite.access(owner, dest), "thread root")

	// Replying to someone else mentions them implicitly.
	reply, err := NewMessage(member, suite.access(member, dest), NewMessageOpts{
		Content:  "following up",
		ParentID: &parent.ID,
	})
	require.NoError(t, err)
	assert.Contains(t, []string(reply.Mentions), "owner")

	// Replying to yourself does not.
	selfReply, err := NewMessage(owner, suite.access(owner, dest), NewMessageOpts{
		Content:  "one more thing",
		ParentID: &parent.ID,
	})
	require.NoError(t, err)
	assert.NotContains(t, []string(selfReply.Mentions), "owner")

	// Parents cannot be borrowed from another destination.
	_, err = NewMessage(owner, suite.access(owner, models.ChannelDestination(other.ID)), NewMessageOpts{
		Content:  "crossing wires",
		ParentID: &parent.ID,
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func (suite *ServicesTestSuite) TestSendClearsTyping() {
	t := suite.T()

	owner := suite.makeAccount("owner")
	organization := suite.makeOrganization(owner, "acme")
	channel := suite.makeChannel(organization, owner, "general")
	dest := models.ChannelDestination(channel.ID)

	SetTypingStatus(dest, owner)
	require.Contains(t, ListTypingAccountIDs(dest, time.Now()), owner.ID)

	suite.send(owner, suite.access(owner, dest), "done typing")
	assert.Empty(t, ListTypingAccountIDs(dest, time.Now()))
}

func (suite *ServicesTestSuite) TestTimelinePagination() {
	t := suite.T()

	owner := suite.makeAccount("owner")
	organization := suite.makeOrganization(owner, "acme")
	channel := suite.makeChannel(organization, owner, "general")
	dest := models.ChannelDestination(channel.ID)
	access := suite.access(owner, dest)

	contents := []string{"one", "two", "three", "four", "five", "six", "seven"}
	sent := make([]models.Message, 0, len(contents))
	for _, content := range contents {
		sent = append(sent, suite.send(owner, access, content))
	}

	// Timestamps are strictly increasing per destination.
	for i := 1; i < len(sent); i++ {
		assert.True(t, sent[i].CreatedAt.After(sent[i-1].CreatedAt))
	}

	var seen []string
	page1, hasMore, err := ListMessage(owner, dest, 3, nil)
	require.NoError(t, err)
	require.Len(t, page1, 3)
	assert.True(t, hasMore)
	assert.Equal(t, "five", page1[0].Content)
	assert.Equal(t, "seven", page1[2].Content)

	cursor := page1[0].CreatedAt
	for _, view := range page1 {
		seen = append(seen, view.Content)
	}

	page2, hasMore, err := ListMessage(owner, dest, 3, &cursor)
	require.NoError(t, err)
	require.Len(t, page2, 3)
	assert.True(t, hasMore)
	assert.Equal(t, "two", page2[0].Content)

	cursor = page2[0].CreatedAt
	for _, view := range page2 {
		seen = append(seen, view.Content)
	}

	page3, hasMore, err := ListMessage(owner, dest, 3, &cursor)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.False(t, hasMore)
	seen = append(seen, page3[0].Content)

	// Three pages cover every message exactly once.
	assert.ElementsMatch(t, contents, seen)
}

func (suite *ServicesTestSuite) TestThreadSummary() {
	t := suite.T()

	owner := suite.makeAccount("owner")
	organization := suite.makeOrganization(owner, "acme")
	channel := suite.makeChannel(organization, owner, "general")
	dest := models.ChannelDestination(channel.ID)

	repliers := []models.Account{
		suite.makeAccount("ada"),
		suite.makeAccount("ben"),
		suite.makeAccount("cal"),
		suite.makeAccount("dot"),
	}
	for _, account := range repliers {
		_, err := AddOrganizationMember(owner, organization, account, models.OrganizationRoleMember)
		require.NoError(t, err)
	}

	parent := suite.send(owner, suite.access(owner, dest), "thread root")
	for i, account := range append(repliers, repliers[0]) {
		_, err := NewMessage(account, suite.access(account, dest), NewMessageOpts{
			Content:  "reply",
			ParentID: &parent.ID,
		})
		require.NoError(t, err, "reply %d", i)
	}

	// Replies never show on the main timeline, the root carries a summary.
	views, _, err := ListMessage(owner, dest, 0, nil)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, parent.ID, views[0].ID)
	assert.EqualValues(t, 5, views[0].ReplyCount)
	assert.Len(t, views[0].RecentRepliers, 3)

	// The newest distinct repliers come first: ada replied last, then dot, cal.
	names := []string{}
	for _, profile := range views[0].RecentRepliers {
		names = append(names, profile.Name)
	}
	assert.Equal(t, []string{"ada", "dot", "cal"}, names)

	thread, err := ListThreadReply(owner, parent)
	require.NoError(t, err)
	require.Len(t, thread, 5)
	for i := 1; i < len(thread); i++ {
		assert.True(t, thread[i].CreatedAt.After(thread[i-1].CreatedAt))
	}
}

func (suite *ServicesTestSuite) TestReactionToggle() {
	t := suite.T()

	owner := suite.makeAccount("owner")
	member := suite.makeAccount("member")
	organization := suite.makeOrganization(owner, "acme")
	_, err := AddOrganizationMember(owner, organization, member, models.OrganizationRoleMember)
	require.NoError(t, err)
	channel := suite.makeChannel(organization, owner, "general")
	dest := models.ChannelDestination(channel.ID)

	message := suite.send(owner, suite.access(owner, dest), "react to this")

	_, err = ToggleReaction(owner, message, "")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	added, err := ToggleReaction(owner, message, "+1")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = ToggleReaction(member, message, "+1")
	require.NoError(t, err)
	assert.True(t, added)

	view, err := GetMessageView(member, message)
	require.NoError(t, err)
	require.Len(t, view.ReactionList, 1)
	assert.Equal(t, "+1", view.ReactionList[0].Symbol)
	assert.EqualValues(t, 2, view.ReactionList[0].Count)
	assert.True(t, view.ReactionList[0].ReactedByMe)

	// Toggling again takes it back off.
	added, err = ToggleReaction(member, message, "+1")
	require.NoError(t, err)
	assert.False(t, added)

	view, err = GetMessageView(member, message)
	require.NoError(t, err)
	require.Len(t, view.ReactionList, 1)
	assert.EqualValues(t, 1, view.ReactionList[0].Count)
	assert.False(t, view.ReactionList[0].ReactedByMe)
}

func (suite *ServicesTestSuite) TestPinRequiresAdmin() {
	t := suite.T()

	owner := suite.makeAccount("owner")
	member := suite.makeAccount("member")
	organization := suite.makeOrganization(owner, "acme")
	_, err := AddOrganizationMember(owner, organization, member, models.OrganizationRoleMember)
	require.NoError(t, err)
	channel := suite.makeChannel(organization, owner, "general")
	dest := models.ChannelDestination(channel.ID)

	message := suite.send(owner, suite.access(owner, dest), "pin me")

	memberAccess := suite.access(member, dest)
	_, err = TogglePin(member, memberAccess.Perm, message)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	ownerAccess := suite.access(owner, dest)
	pinned, err := TogglePin(owner, ownerAccess.Perm, message)
	require.NoError(t, err)
	assert.True(t, pinned.Pinned)

	views, err := ListPinnedMessage(member, dest)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, message.ID, views[0].ID)

	unpinned, err := TogglePin(owner, ownerAccess.Perm, pinned)
	require.NoError(t, err)
	assert.False(t, unpinned.Pinned)

	// Conversation messages cannot be pinned at all.
	peer := suite.makeAccount("peer")
	conversation, err := GetOrCreateConversation(owner, peer)
	require.NoError(t, err)
	convDest := models.ConversationDestination(conversation.ID)
	direct := suite.send(owner, suite.access(owner, convDest), "direct line")
	_, err = TogglePin(owner, ChannelPerm{IsAdmin: true}, direct)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func (suite *ServicesTestSuite) TestSavedMessages() {
	t := suite.T()

	owner := suite.makeAccount("owner")
	organization := suite.makeOrganization(owner, "acme")
	channel := suite.makeChannel(organization, owner, "general")
	dest := models.ChannelDestination(channel.ID)

	message := suite.send(owner, suite.access(owner, dest), "keep this")

	already, err := SaveMessage(owner, message)
	require.NoError(t, err)
	assert.False(t, already)

	already, err = SaveMessage(owner, message)
	require.NoError(t, err)
	assert.True(t, already)

	views, count, err := ListSavedMessage(owner, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	require.Len(t, views, 1)
	assert.True(t, views[0].IsSaved)

	// Deleting the message sweeps the bookmark along.
	require.NoError(t, DeleteMessage(owner, message))
	views, count, err = ListSavedMessage(owner, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
	assert.Empty(t, views)

	missing, err := UnsaveMessage(owner, message)
	require.NoError(t, err)
	assert.True(t, missing)
}

func (suite *ServicesTestSuite) TestMessageEditAndDelete() {
	t := suite.T()

	owner := suite.makeAccount("owner")
	member := suite.makeAccount("member")
	organization := suite.makeOrganization(owner, "acme")
	_, err := AddOrganizationMember(owner, organization, member, models.OrganizationRoleMember)
	require.NoError(t, err)
	channel := suite.makeChannel(organization, owner, "general")
	dest := models.ChannelDestination(channel.ID)

	message := suite.send(owner, suite.access(owner, dest), "first draft")

	_, err = EditMessage(member, message, "hijacked", nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	edited, err := EditMessage(owner, message, "final draft for @member", nil)
	require.NoError(t, err)
	assert.Equal(t, "final draft for @member", edited.Content)
	assert.Contains(t, []string(edited.Mentions), "member")
	require.NotNil(t, edited.EditedAt)

	assert.ErrorIs(t, DeleteMessage(member, edited), ErrPermissionDenied)
	require.NoError(t, DeleteMessage(owner, edited))

	_, err = GetMessage(message.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func (suite *ServicesTestSuite) TestMentionFlow() {
	t := suite.T()

	owner := suite.makeAccount("owner")
	joan := suite.makeAccount("joan")
	organization := suite.makeOrganization(owner, "acme")
	_, err := AddOrganizationMember(owner, organization, joan, models.OrganizationRoleMember)
	require.NoError(t, err)
	channel := suite.makeChannel(organization, owner, "general")
	dest := models.ChannelDestination(channel.ID)

	suite.send(owner, suite.access(owner, dest), "@joan have a look")
	suite.send(owner, suite.access(owner, dest), "@everyone standup now")
	// Mentioning yourself does not create a backlog entry.
	suite.send(joan, suite.access(joan, dest), "note to @joan")

	count, err := CountUnreadMention(joan, organization.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	mentions, err := ListUnreadMention(joan, organization.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, mentions, 2)
	// Newest first.
	assert.Contains(t, mentions[0].Content, "@everyone")

	alreadyRead, err := MarkMentionRead(joan, mentions[0].ID)
	require.NoError(t, err)
	assert.False(t, alreadyRead)

	alreadyRead, err = MarkMentionRead(joan, mentions[0].ID)
	require.NoError(t, err)
	assert.True(t, alreadyRead)

	count, err = CountUnreadMention(joan, organization.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	cleared, err := MarkAllMentionsRead(joan, organization.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, cleared)

	count, err = CountUnreadMention(joan, organization.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	// Strangers to the organization get refused outright.
	stranger := suite.makeAccount("stranger")
	_, err = CountUnreadMention(stranger, organization.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func (suite *ServicesTestSuite) TestMentionRespectsMuteAndPrivacy() {
	t := suite.T()

	owner := suite.makeAccount("owner")
	joan := suite.makeAccount("joan")
	organization := suite.makeOrganization(owner, "acme")
	_, err := AddOrganizationMember(owner, organization, joan, models.OrganizationRoleMember)
	require.NoError(t, err)

	muted := suite.makeChannel(organization, owner, "noisy")
	require.NoError(t, AddChannelMember(joan, muted))
	membership, err := GetChannelMember(joan, muted.ID)
	require.NoError(t, err)
	membership.Notify = models.NotifyLevelNone
	_, err = EditChannelMember(membership)
	require.NoError(t, err)

	secret := suite.makeChannel(organization, owner, "secret", func(c *models.Channel) {
		c.IsPrivate = true
	})

	suite.send(owner, suite.access(owner, models.ChannelDestination(muted.ID)), "@joan ping")
	suite.send(owner, suite.access(owner, models.ChannelDestination(secret.ID)), "@joan classified")

	// Muted channels and unopenable private channels stay out of the count.
	count, err := CountUnreadMention(joan, organization.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	// Once invited, the private mention surfaces.
	require.NoError(t, AddChannelMember(joan, secret))
	count, err = CountUnreadMention(joan, organization.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func (suite *ServicesTestSuite) TestPrivateChannelConcealment() {
	t := suite.T()

	owner := suite.makeAccount("owner")
	joan := suite.makeAccount("joan")
	outsider := suite.makeAccount("outsider")
	organization := suite.makeOrganization(owner, "acme")
	_, err := AddOrganizationMember(owner, organization, joan, models.OrganizationRoleMember)
	require.NoError(t, err)

	private := suite.makeChannel(organization, owner, "war-room", func(c *models.Channel) {
		c.IsPrivate = true
	})
	public := suite.makeChannel(organization, owner, "general")
	privateDest := models.ChannelDestination(private.ID)

	suite.send(owner, suite.access(owner, privateDest), "for members only")

	// Organization members outside the channel see an empty room, not an error.
	views, hasMore, err := ListMessage(joan, privateDest, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, views)
	assert.False(t, hasMore)

	hits, err := SearchMessage(joan, privateDest, "members", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	pins, err := ListPinnedMessage(joan, privateDest)
	require.NoError(t, err)
	assert.Empty(t, pins)

	// Even full strangers cannot tell the channel exists.
	views, _, err = ListMessage(outsider, privateDest, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, views)

	// Public channels fail loudly instead.
	_, _, err = ListMessage(outsider, models.ChannelDestination(public.ID), 0, nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func (suite *ServicesTestSuite) TestSearchMessage() {
	t := suite.T()

	owner := suite.makeAccount("owner")
	organization := suite.makeOrganization(owner, "acme")
	channel := suite.makeChannel(organization, owner, "general")
	dest := models.ChannelDestination(channel.ID)
	access := suite.access(owner, dest)

	suite.send(owner, access, "Deploy finished at 100% coverage")
	suite.send(owner, access, "lunch plans anyone")

	_, err := SearchMessage(owner, dest, "   ", 0)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	hits, err := SearchMessage(owner, dest, "deploy", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].Content, "Deploy")

	// Wildcard characters in the probe match literally.
	hits, err = SearchMessage(owner, dest, "100%", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	hits, err = SearchMessage(owner, dest, "0%_c", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func (suite *ServicesTestSuite) TestForwardMessage() {
	t := suite.T()

	owner := suite.makeAccount("owner")
	organization := suite.makeOrganization(owner, "acme")
	source := suite.makeChannel(organization, owner, "general")
	target := suite.makeChannel(organization, owner, "archive")
	sourceDest := models.ChannelDestination(source.ID)
	targetDest := models.ChannelDestination(target.ID)

	message := suite.send(owner, suite.access(owner, sourceDest), "worth keeping @owner")
	message, err := GetMessageWithSender(message.ID)
	require.NoError(t, err)

	fromAccess := suite.access(owner, sourceDest)
	_, err = ForwardMessage(owner, message, fromAccess, fromAccess)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	forwarded, err := ForwardMessage(owner, message, fromAccess, suite.access(owner, targetDest))
	require.NoError(t, err)
	assert.Equal(t, message.Content, forwarded.Content)
	require.NotNil(t, forwarded.ForwardedFrom)
	assert.Equal(t, message.ID, forwarded.ForwardedFrom.MessageID)
	assert.NotEmpty(t, forwarded.ForwardedFrom.SourceName)
	// Mentions do not travel with the copy.
	assert.Empty(t, []string(forwarded.Mentions))

	views, _, err := ListMessage(owner, targetDest, 0, nil)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, forwarded.ID, views[0].ID)
}

func (suite *ServicesTestSuite) TestConversationUnread() {
	t := suite.T()

	a := suite.makeAccount("ada")
	b := suite.makeAccount("ben")
	conversation, err := GetOrCreateConversation(a, b)
	require.NoError(t, err)
	dest := models.ConversationDestination(conversation.ID)

	// Sending moves the sender's own marker, so ada posts first.
	suite.send(a, suite.access(a, dest), "are you around")
	suite.send(b, suite.access(b, dest), "hello")
	suite.send(b, suite.access(b, dest), "yes, here")

	list, err := ListConversation(a)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.EqualValues(t, 2, list[0].UnreadCount)

	require.NoError(t, MarkConversationReadAt(conversation.ID, a.ID, time.Now()))
	list, err = ListConversation(a)
	require.NoError(t, err)
	assert.EqualValues(t, 0, list[0].UnreadCount)
}

func (suite *ServicesTestSuite) TestReadMarkerNeverMovesBack() {
	t := suite.T()

	owner := suite.makeAccount("owner")
	organization := suite.makeOrganization(owner, "acme")
	channel := suite.makeChannel(organization, owner, "general")

	late := time.Now()
	early := late.Add(-time.Hour)

	require.NoError(t, MarkChannelReadAt(channel.ID, owner.ID, late))
	require.NoError(t, MarkChannelReadAt(channel.ID, owner.ID, early))

	var status models.ChannelReadStatus
	require.NoError(t, suite.db.Where("channel_id = ? AND account_id = ?", channel.ID, owner.ID).First(&status).Error)
	assert.WithinDuration(t, late, status.LastReadAt, time.Second)
}

func (suite *ServicesTestSuite) TestWhatsNew() {
	t := suite.T()

	owner := suite.makeAccount("owner")
	joan := suite.makeAccount("joan")
	organization := suite.makeOrganization(owner, "acme")
	_, err := AddOrganizationMember(owner, organization, joan, models.OrganizationRoleMember)
	require.NoError(t, err)
	channel := suite.makeChannel(organization, owner, "general")
	require.NoError(t, AddChannelMember(joan, channel))
	dest := models.ChannelDestination(channel.ID)

	suite.send(owner, suite.access(owner, dest), "first")
	suite.send(owner, suite.access(owner, dest), "second")

	entries, err := ListWhatsNew(joan)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, channel.ID, entries[0].Channel.ID)
	assert.EqualValues(t, 2, entries[0].UnreadCount)

	require.NoError(t, MarkChannelReadAt(channel.ID, joan.ID, time.Now()))
	entries, err = ListWhatsNew(joan)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func (suite *ServicesTestSuite) TestListAvailableChannel() {
	t := suite.T()

	owner := suite.makeAccount("owner")
	joan := suite.makeAccount("joan")
	organization := suite.makeOrganization(owner, "acme")
	_, err := AddOrganizationMember(owner, organization, joan, models.OrganizationRoleMember)
	require.NoError(t, err)

	suite.makeChannel(organization, owner, "general")
	hidden := suite.makeChannel(organization, owner, "hidden", func(c *models.Channel) {
		c.IsPrivate = true
	})

	category, err := NewChannelCategory(models.ChannelCategory{
		Name:           "leadership",
		IsPrivate:      true,
		OrganizationID: organization.ID,
	})
	require.NoError(t, err)
	suite.makeChannel(organization, owner, "board", func(c *models.Channel) {
		c.CategoryID = &category.ID
	})

	names := func(channels []models.Channel) []string {
		out := make([]string, 0, len(channels))
		for _, item := range channels {
			out = append(out, item.Alias)
		}
		return out
	}

	visible, err := ListAvailableChannel(joan, organization.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"general"}, names(visible))

	// Membership unlocks hidden channels one by one.
	require.NoError(t, AddChannelMember(joan, hidden))
	visible, err = ListAvailableChannel(joan, organization.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"general", "hidden"}, names(visible))

	// Admins see the whole map.
	visible, err = ListAvailableChannel(owner, organization.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"general", "hidden", "board"}, names(visible))
}

func (suite *ServicesTestSuite) TestChannelAliasAvailability() {
	t := suite.T()

	owner := suite.makeAccount("owner")
	organization := suite.makeOrganization(owner, "acme")
	suite.makeChannel(organization, owner, "general")

	assert.Error(t, GetChannelAliasAvailability(organization.ID, "General"))
	assert.Error(t, GetChannelAliasAvailability(organization.ID, "has space"))
	assert.Error(t, GetChannelAliasAvailability(organization.ID, "general"))
	assert.NoError(t, GetChannelAliasAvailability(organization.ID, "general-2"))
}

func (suite *ServicesTestSuite) TestDatabaseCleanup() {
	t := suite.T()

	owner := suite.makeAccount("owner")
	organization := suite.makeOrganization(owner, "acme")
	stale := suite.makeChannel(organization, owner, "stale")
	fresh := suite.makeChannel(organization, owner, "fresh")

	require.NoError(t, DeleteChannel(stale))
	require.NoError(t, DeleteChannel(fresh))
	suite.db.Exec("UPDATE channels SET deleted_at = ? WHERE id = ?", time.Now().Add(-2*time.Hour), stale.ID)

	DoAutoDatabaseCleanup()

	var count int64
	suite.db.Unscoped().Model(&models.Channel{}).Where("id = ?", stale.ID).Count(&count)
	assert.EqualValues(t, 0, count)

	// Recent tombstones stay until they age out.
	suite.db.Unscoped().Model(&models.Channel{}).Where("id = ?", fresh.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestServices(t *testing.T) {
	suite.Run(t, new(ServicesTestSuite))
}
