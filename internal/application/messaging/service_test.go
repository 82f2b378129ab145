package messaging

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/domain/messaging"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"github.com/thirdhand/marketplace/tests/testutil"
	"go.uber.org/zap/zaptest"
)

type pushed struct {
	userID    uuid.UUID
	frameType string
	payload   any
}

type fakeRealtime struct {
	mu     sync.Mutex
	frames []pushed
}

func (r *fakeRealtime) SendToUser(userID uuid.UUID, frameType string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, pushed{userID, frameType, payload})
}

type messagingFixture struct {
	messages *testutil.MockMessageRepository
	users    *testutil.MockUserRepository
	realtime *fakeRealtime
	service  *Service

	artist *identity.User
	buyer  *identity.User
}

func newMessagingFixture(t *testing.T) *messagingFixture {
	t.Helper()
	f := &messagingFixture{
		messages: new(testutil.MockMessageRepository),
		users:    new(testutil.MockUserRepository),
		realtime: &fakeRealtime{},
	}
	f.service = NewService(f.messages, f.users, f.realtime, zaptest.NewLogger(t))
	f.artist = newUser(t, "painter", identity.RoleArtist)
	f.buyer = newUser(t, "collector", identity.RoleBuyer)
	return f
}

func newUser(t *testing.T, name string, role identity.Role) *identity.User {
	t.Helper()
	u, _, err := identity.NewUser(name, name+"@example.com", "Secret123!", role)
	require.NoError(t, err)
	return u
}

func TestService_Send(t *testing.T) {
	f := newMessagingFixture(t)
	ctx := context.Background()

	f.users.On("FindByID", ctx, f.buyer.ID).Return(f.buyer, nil)
	f.users.On("FindByID", ctx, f.artist.ID).Return(f.artist, nil)
	f.messages.On("Create", ctx, mock.AnythingOfType("*messaging.Message")).Return(nil)
	f.users.On("RecordMessage", ctx, f.buyer.ID, f.artist.ID, mock.AnythingOfType("time.Time")).Return(nil)

	resp, err := f.service.Send(ctx, f.buyer.ID, SendMessageInput{ReceiverID: f.artist.ID, Content: "  Is it framed?  "})
	require.NoError(t, err)

	assert.Equal(t, "Is it framed?", resp.Content)
	assert.Equal(t, messaging.ConversationID(f.buyer.ID, f.artist.ID), resp.ConversationID)
	f.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)

	require.Len(t, f.realtime.frames, 1)
	assert.Equal(t, f.artist.ID, f.realtime.frames[0].userID)
	assert.Equal(t, FrameMessageNew, f.realtime.frames[0].frameType)
	f.users.AssertExpectations(t)
}

func TestService_Send_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("self", func(t *testing.T) {
		f := newMessagingFixture(t)
		_, err := f.service.Send(ctx, f.buyer.ID, SendMessageInput{ReceiverID: f.buyer.ID, Content: "hi"})
		assertCode(t, err, "CANNOT_MESSAGE_SELF")
	})

	t.Run("empty", func(t *testing.T) {
		f := newMessagingFixture(t)
		_, err := f.service.Send(ctx, f.buyer.ID, SendMessageInput{ReceiverID: f.artist.ID, Content: "   "})
		assertCode(t, err, "INVALID_CONTENT")
	})

	t.Run("unknown receiver", func(t *testing.T) {
		f := newMessagingFixture(t)
		ghost := uuid.New()
		f.users.On("FindByID", ctx, f.buyer.ID).Return(f.buyer, nil)
		f.users.On("FindByID", ctx, ghost).Return(nil, shared.ErrNotFound)
		_, err := f.service.Send(ctx, f.buyer.ID, SendMessageInput{ReceiverID: ghost, Content: "hi"})
		assertCode(t, err, "NOT_FOUND")
	})

	t.Run("blocked by receiver", func(t *testing.T) {
		f := newMessagingFixture(t)
		require.NoError(t, f.artist.Block(f.buyer.ID))
		f.users.On("FindByID", ctx, f.buyer.ID).Return(f.buyer, nil)
		f.users.On("FindByID", ctx, f.artist.ID).Return(f.artist, nil)
		_, err := f.service.Send(ctx, f.buyer.ID, SendMessageInput{ReceiverID: f.artist.ID, Content: "hi"})
		assertCode(t, err, "USER_BLOCKED")
	})

	t.Run("receiver blocked by sender", func(t *testing.T) {
		f := newMessagingFixture(t)
		require.NoError(t, f.buyer.Block(f.artist.ID))
		f.users.On("FindByID", ctx, f.buyer.ID).Return(f.buyer, nil)
		f.users.On("FindByID", ctx, f.artist.ID).Return(f.artist, nil)
		_, err := f.service.Send(ctx, f.buyer.ID, SendMessageInput{ReceiverID: f.artist.ID, Content: "hi"})
		assertCode(t, err, "USER_BLOCKED")
	})

	t.Run("buyer to buyer", func(t *testing.T) {
		f := newMessagingFixture(t)
		other := newUser(t, "another", identity.RoleBuyer)
		f.users.On("FindByID", ctx, f.buyer.ID).Return(f.buyer, nil)
		f.users.On("FindByID", ctx, other.ID).Return(other, nil)
		_, err := f.service.Send(ctx, f.buyer.ID, SendMessageInput{ReceiverID: other.ID, Content: "hi"})
		assertCode(t, err, "FORBIDDEN")
		f.messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestService_CanMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("artist and buyer", func(t *testing.T) {
		f := newMessagingFixture(t)
		f.users.On("FindByID", ctx, f.buyer.ID).Return(f.buyer, nil)
		f.users.On("FindByID", ctx, f.artist.ID).Return(f.artist, nil)
		require.NoError(t, f.service.CanMessage(ctx, f.buyer.ID, f.artist.ID))
		require.NoError(t, f.service.CanMessage(ctx, f.artist.ID, f.buyer.ID))
	})

	t.Run("self", func(t *testing.T) {
		f := newMessagingFixture(t)
		assertCode(t, f.service.CanMessage(ctx, f.buyer.ID, f.buyer.ID), "CANNOT_MESSAGE_SELF")
		f.users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("block applies both ways", func(t *testing.T) {
		f := newMessagingFixture(t)
		require.NoError(t, f.artist.Block(f.buyer.ID))
		f.users.On("FindByID", ctx, f.buyer.ID).Return(f.buyer, nil)
		f.users.On("FindByID", ctx, f.artist.ID).Return(f.artist, nil)
		assertCode(t, f.service.CanMessage(ctx, f.buyer.ID, f.artist.ID), "USER_BLOCKED")
		assertCode(t, f.service.CanMessage(ctx, f.artist.ID, f.buyer.ID), "USER_BLOCKED")
	})

	t.Run("buyer to buyer", func(t *testing.T) {
		f := newMessagingFixture(t)
		other := newUser(t, "another", identity.RoleBuyer)
		f.users.On("FindByID", ctx, f.buyer.ID).Return(f.buyer, nil)
		f.users.On("FindByID", ctx, other.ID).Return(other, nil)
		assertCode(t, f.service.CanMessage(ctx, f.buyer.ID, other.ID), "FORBIDDEN")
	})
}

func TestCanMessage(t *testing.T) {
	assert.True(t, canMessage(identity.RoleArtist, identity.RoleBuyer))
	assert.True(t, canMessage(identity.RoleBuyer, identity.RoleArtist))
	assert.True(t, canMessage(identity.RoleAdmin, identity.RoleArtist))
	assert.True(t, canMessage(identity.RoleBuyer, identity.RoleAdmin))
	assert.False(t, canMessage(identity.RoleArtist, identity.RoleArtist))
	assert.False(t, canMessage(identity.RoleBuyer, identity.RoleBuyer))
}

func TestService_Conversations(t *testing.T) {
	f := newMessagingFixture(t)
	ctx := context.Background()

	last, err := messaging.NewMessage(f.artist.ID, f.buyer.ID, "Thanks!", time.Now())
	require.NoError(t, err)
	f.messages.On("Conversations", ctx, f.buyer.ID).Return([]messaging.Conversation{{
		ConversationID: last.ConversationID,
		OtherUserID:    f.artist.ID,
		LastMessage:    last,
		UnreadCount:    2,
	}}, nil)
	f.users.On("FindByIDs", ctx, []uuid.UUID{f.artist.ID}).Return([]*identity.User{f.artist}, nil)

	convs, err := f.service.Conversations(ctx, f.buyer.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "painter", convs[0].OtherUser.Username)
	assert.Equal(t, "Thanks!", convs[0].LastMessage.Content)
	assert.Equal(t, int64(2), convs[0].UnreadCount)

	empty := newMessagingFixture(t)
	empty.messages.On("Conversations", ctx, empty.buyer.ID).Return([]messaging.Conversation{}, nil)
	convs, err = empty.service.Conversations(ctx, empty.buyer.ID)
	require.NoError(t, err)
	assert.NotNil(t, convs)
	assert.Empty(t, convs)
}

func TestService_Messages_OldestFirst(t *testing.T) {
	f := newMessagingFixture(t)
	ctx := context.Background()
	base := time.Now()

	newer, err := messaging.NewMessage(f.artist.ID, f.buyer.ID, "second", base.Add(time.Minute))
	require.NoError(t, err)
	older, err := messaging.NewMessage(f.buyer.ID, f.artist.ID, "first", base)
	require.NoError(t, err)

	f.users.On("FindByID", ctx, f.artist.ID).Return(f.artist, nil)
	f.messages.On("ListConversation", ctx, messaging.ConversationID(f.buyer.ID, f.artist.ID),
		mock.MatchedBy(func(opts shared.ListOptions) bool {
			return opts.Page == 1 && opts.Limit == DefaultMessagePageSize && opts.Sort.Direction == shared.SortDesc
		})).Return([]*messaging.Message{newer, older}, int64(2), nil)

	page, err := f.service.Messages(ctx, f.buyer.ID, f.artist.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "first", page.Items[0].Content)
	assert.Equal(t, "second", page.Items[1].Content)
	assert.Equal(t, int64(2), page.Pagination.Total)
}

func TestService_MarkRead(t *testing.T) {
	f := newMessagingFixture(t)
	ctx := context.Background()

	f.messages.On("MarkRead", ctx, f.artist.ID, f.buyer.ID, mock.AnythingOfType("time.Time")).Return(int64(3), nil).Once()
	n, err := f.service.MarkRead(ctx, f.buyer.ID, f.artist.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.Len(t, f.realtime.frames, 1)
	frame := f.realtime.frames[0]
	assert.Equal(t, f.artist.ID, frame.userID)
	assert.Equal(t, FrameMessageRead, frame.frameType)
	receipt := frame.payload.(ReadReceipt)
	assert.Equal(t, f.buyer.ID, receipt.ReaderID)
	assert.Equal(t, int64(3), receipt.Count)

	// nothing new to read, nobody to notify
	f.messages.On("MarkRead", ctx, f.artist.ID, f.buyer.ID, mock.AnythingOfType("time.Time")).Return(int64(0), nil).Once()
	_, err = f.service.MarkRead(ctx, f.buyer.ID, f.artist.ID)
	require.NoError(t, err)
	assert.Len(t, f.realtime.frames, 1)
}

func TestService_UnreadCount(t *testing.T) {
	f := newMessagingFixture(t)
	ctx := context.Background()
	f.messages.On("UnreadCount", ctx, f.buyer.ID).Return(int64(4), nil)

	n, err := f.service.UnreadCount(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	de, ok := shared.AsDomainError(err)
	require.True(t, ok, "expected domain error, got %v", err)
	assert.Equal(t, code, de.Code)
}
