package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub-io/studyhub/internal/models"
)

func TestCreateGroupOwnerIsAdmin(t *testing.T) {
	db := newTestDB(t)
	repo := NewGroupRepository(db)

	alice := seedUser(t, db, "alice")
	group := seedGroup(t, db, alice, "study")

	role, err := repo.GetMemberRole(group.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)
}

func TestGetMemberRoleNonMember(t *testing.T) {
	db := newTestDB(t)
	repo := NewGroupRepository(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	group := seedGroup(t, db, alice, "study")

	role, err := repo.GetMemberRole(group.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "", role)
}

func TestAddMemberDuplicate(t *testing.T) {
	db := newTestDB(t)
	repo := NewGroupRepository(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	group := seedGroup(t, db, alice, "study")

	member := &models.GroupMember{
		GroupID: group.ID, UserID: bob.ID,
		Role: models.RoleMember, JoinedAt: time.Now(),
	}
	require.NoError(t, repo.AddMember(member))

	// 重复加入不报错、不改角色
	again := &models.GroupMember{
		GroupID: group.ID, UserID: bob.ID,
		Role: models.RoleAdmin, JoinedAt: time.Now(),
	}
	require.NoError(t, repo.AddMember(again))

	role, err := repo.GetMemberRole(group.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, role)
}

func TestGetUserGroupIDs(t *testing.T) {
	db := newTestDB(t)
	repo := NewGroupRepository(db)

	alice := seedUser(t, db, "alice")
	g1 := seedGroup(t, db, alice, "one")
	g2 := seedGroup(t, db, alice, "two")

	ids, err := repo.GetUserGroupIDs(alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{g1.ID, g2.ID}, ids)
}

func TestRemoveMember(t *testing.T) {
	db := newTestDB(t)
	repo := NewGroupRepository(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	group := seedGroup(t, db, alice, "study")

	require.NoError(t, repo.AddMember(&models.GroupMember{
		GroupID: group.ID, UserID: bob.ID, Role: models.RoleMember, JoinedAt: time.Now(),
	}))
	require.NoError(t, repo.RemoveMember(group.ID, bob.ID))

	role, err := repo.GetMemberRole(group.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "", role)
}
