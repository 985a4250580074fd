package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/galadima-cyber/eRecord/internal/model"
	"github.com/galadima-cyber/eRecord/internal/repository"
	pkgerrors "github.com/galadima-cyber/eRecord/pkg/errors"
)

func TestUserRepo_Lookup(t *testing.T) {
	db := newSQLiteDB(t)
	repo := repository.NewUserRepo(db)
	ctx := context.Background()

	u := &model.User{Name: "Ada", MatricNo: "190805001", Email: "ada@unilag.edu.ng", PasswordHash: "h", Role: model.RoleStudent}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotEmpty(t, u.UserID)

	got, err := repo.GetByMatricNo(ctx, "190805001")
	require.NoError(t, err)
	assert.Equal(t, u.UserID, got.UserID)

	got, err = repo.GetByID(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	_, err = repo.GetByMatricNo(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	dup := &model.User{Name: "Ada 2", MatricNo: "190805001", Email: "x@y.z", PasswordHash: "h", Role: model.RoleStudent}
	assert.ErrorIs(t, repo.Create(ctx, dup), pkgerrors.ErrDuplicateKey)

	users, err := repo.ListByMatricNos(ctx, []string{"190805001", "nope"})
	require.NoError(t, err)
	assert.Len(t, users, 1)

	users, err = repo.ListByMatricNos(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUserRepo_CreateBatchIsAtomic(t *testing.T) {
	db := newSQLiteDB(t)
	repo := repository.NewUserRepo(db)
	ctx := context.Background()

	existing := seedUser(t, db, model.RoleStudent)

	batch := []model.User{
		{Name: "A", MatricNo: "190805101", Email: "a@unilag.edu.ng", PasswordHash: "h", Role: model.RoleStudent},
		{Name: "B", MatricNo: existing.MatricNo, Email: "b@unilag.edu.ng", PasswordHash: "h", Role: model.RoleStudent},
	}
	assert.ErrorIs(t, repo.CreateBatch(ctx, batch), pkgerrors.ErrDuplicateKey)

	_, err := repo.GetByMatricNo(ctx, "190805101")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound, "事务回滚后不应留下部分写入")

	batch = []model.User{
		{Name: "A", MatricNo: "190805101", Email: "a@unilag.edu.ng", PasswordHash: "h", Role: model.RoleStudent},
		{Name: "C", MatricNo: "190805103", Email: "c@unilag.edu.ng", PasswordHash: "h", Role: model.RoleStudent},
	}
	require.NoError(t, repo.CreateBatch(ctx, batch))
	users, err := repo.ListByMatricNos(ctx, []string{"190805101", "190805103"})
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestUserRepo_ListAndEmail(t *testing.T) {
	db := newSQLiteDB(t)
	repo := repository.NewUserRepo(db)
	ctx := context.Background()

	ada := &model.User{Name: "Ada Obi", MatricNo: "190805201", Email: "Ada@Unilag.edu.ng", PasswordHash: "h", Role: model.RoleStudent}
	require.NoError(t, repo.Create(ctx, ada))
	seedUser(t, db, model.RoleStudent)
	seedUser(t, db, model.RoleLecturer)

	got, err := repo.GetByEmail(ctx, "ada@unilag.edu.ng")
	require.NoError(t, err)
	assert.Equal(t, ada.UserID, got.UserID)

	students, total, err := repo.List(ctx, repository.UserListFilter{Role: model.RoleStudent}, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, students, 2)

	found, total, err := repo.List(ctx, repository.UserListFilter{Keyword: "OBI"}, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, found, 1)
	assert.Equal(t, ada.UserID, found[0].UserID)

	page, total, err := repo.List(ctx, repository.UserListFilter{}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 1)
}

func TestUserRepo_UpdatePassword(t *testing.T) {
	db := newSQLiteDB(t)
	repo := repository.NewUserRepo(db)
	ctx := context.Background()
	admin := seedUser(t, db, model.RoleAdmin)
	u := seedUser(t, db, model.RoleStudent)

	require.NoError(t, repo.UpdatePassword(ctx, u.UserID, "new-hash", admin.UserID))
	got, err := repo.GetByID(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	assert.ErrorIs(t, repo.UpdatePassword(ctx, "6f1c2a8e-3b4d-4e5f-8a9b-0c1d2e3f4a5b", "x", admin.UserID), gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.UpdatePassword(ctx, "not-a-uuid", "x", admin.UserID), gorm.ErrRecordNotFound)
}
