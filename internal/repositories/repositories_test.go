package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/studyhub-io/studyhub/internal/models"
)

// 测试用内存数据库，每个测试独立一份
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

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Nickname:     username,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedGroup(t *testing.T, db *gorm.DB, owner *models.User, name string) *models.Group {
	t.Helper()
	group := &models.Group{Name: name, OwnerID: owner.ID}
	require.NoError(t, NewGroupRepository(db).Create(group))
	return group
}

func seedMessage(t *testing.T, db *gorm.DB, id int64, group *models.Group, sender *models.User, content string) *models.Message {
	t.Helper()
	msg := &models.Message{
		ID:        id,
		GroupID:   group.ID,
		SenderID:  sender.ID,
		Content:   content,
		MsgType:   models.MsgTypeText,
		CreatedAt: time.Now(),
	}
	require.NoError(t, db.Create(msg).Error)
	return msg
}
