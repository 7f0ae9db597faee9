// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds the stores the app talks to directly. The Band Manager API
// owns all domain data; these only back the audit trail and the optional
// server-side group cache. Any field may be nil.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Redis         *redis.Client
}

var errRedisMissing = errors.New("group_cache=redis but no Redis client is connected")
