package services

import (
	"context"
	"fmt"

	localCache "git.solsynth.dev/hypernet/circle/pkg/internal/cache"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/rs/zerolog/log"
)

const (
	cacheKindChat = "chat"
	cacheKindPost = "post"
)

func KeyForChat(id uint) string {
	return fmt.Sprintf("chat#%d", id)
}

func KeyForPost(id uint) string {
	return fmt.Sprintf("post#%d", id)
}

func getMarshaler() *marshaler.Marshaler {
	if localCache.S == nil {
		return nil
	}
	return marshaler.New(cache.New[any](localCache.S))
}

func getCached[T any](kind, key string) (T, bool) {
	var out T
	marshal := getMarshaler()
	if marshal == nil {
		return out, false
	}

	val, err := marshal.Get(context.Background(), key, new(T))
	if err != nil {
		localCache.RecordMiss(kind)
		return out, false
	}
	if ptr, ok := val.(*T); ok && ptr != nil {
		localCache.RecordHit(kind)
		return *ptr, true
	}
	localCache.RecordMiss(kind)
	return out, false
}

func setCached(kind, key string, value any) {
	marshal := getMarshaler()
	if marshal == nil {
		return
	}

	if err := marshal.Set(
		context.Background(),
		key,
		value,
		store.WithCost(1),
	); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Unable to write cache entry...")
		return
	}
	// New entries are buffered by ristretto, flush so a following eviction cannot be overtaken.
	localCache.Wait()
	localCache.RecordWrite(kind, "set")
}

func evictCached(kind, key string) {
	marshal := getMarshaler()
	if marshal == nil {
		return
	}

	if err := marshal.Delete(context.Background(), key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Unable to evict cache entry...")
		return
	}
	localCache.RecordWrite(kind, "evict")
}

func EvictChatCache(id uint) {
	evictCached(cacheKindChat, KeyForChat(id))
}

func EvictPostCache(id uint) {
	evictCached(cacheKindPost, KeyForPost(id))
}
