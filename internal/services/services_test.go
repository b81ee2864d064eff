package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/studyhub-io/studyhub/internal/models"
	"github.com/studyhub-io/studyhub/internal/repositories"
	"github.com/studyhub-io/studyhub/utils/snowflake"
)

// recordingBroadcaster 记录所有 Publish 调用，测试断言用
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	Destination string
	Payload     any
}

func (b *recordingBroadcaster) Publish(destination string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, publishedEvent{Destination: destination, Payload: payload})
}

func (b *recordingBroadcaster) eventsFor(destination string) []publishedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []publishedEvent
	for _, e := range b.events {
		if e.Destination == destination {
			out = append(out, e)
		}
	}
	return out
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.Message{},
		&models.MessageReply{},
		&models.PinnedMessage{},
		&models.GroupFile{},
		&models.Notification{},
	))
	return db
}

type testEnv struct {
	db          *gorm.DB
	broadcaster *recordingBroadcaster
	messages    *MessageService
	groups      *GroupService
	notifier    *NotificationService
	userRepo    *repositories.UserRepository
	groupRepo   *repositories.GroupRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	broadcaster := &recordingBroadcaster{}

	userRepo := repositories.NewUserRepository(db)
	groupRepo := repositories.NewGroupRepository(db)
	messageRepo := repositories.NewMessageRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)

	idGen, err := snowflake.NewGenerator(snowflake.Config{WorkerID: 1})
	require.NoError(t, err)

	notifier := NewNotificationService(notificationRepo, userRepo, broadcaster, nil)
	return &testEnv{
		db:          db,
		broadcaster: broadcaster,
		messages:    NewMessageService(messageRepo, groupRepo, userRepo, idGen, broadcaster),
		groups:      NewGroupService(groupRepo, userRepo, notifier),
		notifier:    notifier,
		userRepo:    userRepo,
		groupRepo:   groupRepo,
	}
}

func (e *testEnv) seedUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Nickname:     username,
	}
	require.NoError(t, e.userRepo.Create(user))
	return user
}

func (e *testEnv) seedGroup(t *testing.T, owner *models.User, name string) *models.Group {
	t.Helper()
	group := &models.Group{Name: name, OwnerID: owner.ID}
	require.NoError(t, e.groupRepo.Create(group))
	return group
}

func (e *testEnv) seedMember(t *testing.T, group *models.Group, user *models.User, role string) {
	t.Helper()
	require.NoError(t, e.groupRepo.AddMember(&models.GroupMember{
		GroupID: group.ID, UserID: user.ID, Role: role, JoinedAt: time.Now(),
	}))
}
