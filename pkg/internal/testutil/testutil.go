// Package testutil wires a throwaway database, cache and fake collaborators for tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	localCache "git.solsynth.dev/hypernet/circle/pkg/internal/cache"
	"git.solsynth.dev/hypernet/circle/pkg/internal/database"
	"git.solsynth.dev/hypernet/circle/pkg/internal/gap"
	"git.solsynth.dev/hypernet/circle/pkg/internal/models"
	"git.solsynth.dev/hypernet/circle/pkg/internal/realtime"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Storage struct {
	mu      sync.Mutex
	objects map[string][]byte
	Fail    bool
}

func (v *Storage) Store(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.Fail {
		return "", errors.New("storage is down")
	}
	v.objects[name] = data
	return "https://storage.test/" + name, nil
}

func (v *Storage) Delete(ctx context.Context, name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.objects, name)
	return nil
}

func (v *Storage) Has(name string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.objects[name]
	return ok
}

func (v *Storage) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.objects)
}

type Event struct {
	Topic   string
	Key     string
	Payload []byte
}

type Notifier struct {
	mu     sync.Mutex
	events []Event
}

func (v *Notifier) Publish(topic, key string, payload []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, Event{Topic: topic, Key: key, Payload: payload})
	return nil
}

func (v *Notifier) Events() []Event {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Event(nil), v.events...)
}

type Env struct {
	Storage  *Storage
	Notifier *Notifier
}

// Setup points the package level collaborators at a fresh sqlite database, cache and fakes.
// Tests using it must not run in parallel.
func Setup(t *testing.T) *Env {
	t.Helper()

	viper.Set("security.jwt_secret", "test-secret")
	viper.Set("security.admins", []string{"admin"})
	viper.Set("cache.num_counters", 10000)
	viper.Set("cache.max_cost", 1<<20)

	dsn := filepath.Join(t.TempDir(), "circle.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	// SQLite has a single writer, one connection queues concurrent transactions instead of failing them as busy.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.RunMigration(db))
	database.C = db

	require.NoError(t, localCache.NewStore())

	env := &Env{
		Storage:  &Storage{objects: make(map[string][]byte)},
		Notifier: &Notifier{},
	}
	gap.Storage = env.Storage
	gap.Notifier = env.Notifier
	realtime.H = realtime.NewHub()

	t.Cleanup(func() {
		gap.Storage = nil
		gap.Notifier = nil
		if localCache.R != nil {
			localCache.R.Close()
		}
		localCache.S = nil
		localCache.R = nil
		_ = sqlDB.Close()
	})

	return env
}

// NewAccount inserts an account directly, skipping password hashing.
func NewAccount(t *testing.T, name string) models.Account {
	t.Helper()

	account := models.Account{
		Name:     name,
		Email:    fmt.Sprintf("%s@circle.test", name),
		Password: "-",
		Role:     models.AccountRoleUser,
	}
	if name == "admin" {
		account.Role = models.AccountRoleAdmin
	}
	require.NoError(t, database.C.Create(&account).Error)
	return account
}
