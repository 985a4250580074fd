package repository_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/galadima-cyber/eRecord/internal/model"
)

// newSQLiteDB 每个测试一个独立的 SQLite 文件库
// 单连接：并发写入在连接池上排队，唯一约束由数据库本身裁决
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "erecord.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Location{},
		&model.LectureSession{},
		&model.AttendanceRecord{},
		&model.AttendanceRule{},
		&model.Enrollment{},
	))
	return db
}

var seq int

func seedUser(t *testing.T, db *gorm.DB, role string) *model.User {
	t.Helper()
	seq++
	u := &model.User{
		Name:         fmt.Sprintf("User %d", seq),
		MatricNo:     fmt.Sprintf("MAT/%04d", seq),
		Email:        fmt.Sprintf("user%d@unilag.edu.ng", seq),
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.WithContext(context.Background()).Create(u).Error)
	return u
}

func seedSession(t *testing.T, db *gorm.DB, ownerID string, locationID *string, startsAt time.Time) *model.LectureSession {
	t.Helper()
	s := &model.LectureSession{
		OwnerID:    ownerID,
		CourseCode: "CSC301",
		CourseName: "Data Structures",
		LocationID: locationID,
		WindowMode: "fixed",
		StartsAt:   startsAt,
		ExpiresAt:  startsAt.Add(15 * time.Minute),
	}
	require.NoError(t, db.WithContext(context.Background()).Create(s).Error)
	return s
}
