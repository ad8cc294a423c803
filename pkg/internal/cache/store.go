package cache

import (
	"context"
	"fmt"

	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

var R *redis.Client

// S is the shared cache store. It stays nil when NewCache was never called,
// and cache users treat a nil store as a plain miss.
var S store.StoreInterface

func NewCache() error {
	R = redis.NewClient(&redis.Options{
		Addr:     viper.GetString("cache.addr"),
		Password: viper.GetString("cache.password"),
		DB:       viper.GetInt("cache.db"),
	})

	if err := R.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("failed to connect to cache: %v", err)
	}

	S = redisstore.NewRedis(R)
	return nil
}
