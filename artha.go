package artha

import (
	"embed"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/arthabank/artha/config"
	"github.com/arthabank/artha/database"
	redis_db "github.com/arthabank/artha/internal/redis-db"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

// Artha ties the datasource, the redis-backed locks and the task queue into
// one service instance. All ledger, loan, deposit and payment operations hang
// off it.
type Artha struct {
	queue      *Queue
	redis      redis.UniversalClient
	datasource database.IDataSource
}

func NewArtha(db database.IDataSource) (*Artha, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)})
	if err != nil {
		return nil, err
	}
	newQueue := NewQueue(configuration)
	return &Artha{datasource: db, queue: newQueue, redis: redisClient.Client()}, nil
}
