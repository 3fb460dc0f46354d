package models

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openModelTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}, &Task{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func TestUserGetsUUIDOnCreate(t *testing.T) {
	db := openModelTestDB(t)

	user := User{Name: "Alice", Email: "a@x.com", Password: "hash"}
	require.NoError(t, db.Create(&user).Error)
	require.NotEmpty(t, user.ID)
	require.False(t, user.IsVerified)
}

func TestUserEmailIsUnique(t *testing.T) {
	db := openModelTestDB(t)

	require.NoError(t, db.Create(&User{Name: "Alice", Email: "a@x.com", Password: "hash"}).Error)
	err := db.Create(&User{Name: "Other", Email: "a@x.com", Password: "hash"}).Error
	require.Error(t, err)
}

func TestTaskBelongsToUser(t *testing.T) {
	db := openModelTestDB(t)

	user := User{Name: "Alice", Email: "a@x.com", Password: "hash"}
	require.NoError(t, db.Create(&user).Error)

	task := Task{UserID: user.ID, Heading: "groceries", Description: "milk, eggs"}
	require.NoError(t, db.Create(&task).Error)
	require.NotEmpty(t, task.ID)

	var loaded User
	require.NoError(t, db.Preload("Tasks").First(&loaded, "id = ?", user.ID).Error)
	require.Len(t, loaded.Tasks, 1)
	require.Equal(t, "groceries", loaded.Tasks[0].Heading)
}
