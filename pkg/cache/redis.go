package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/crams-api/pkg/config"
)

// NewRedis returns a configured Redis client.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

// Key namespaces for cached projections.
const (
	PrefixCourses       = "crams:courses:"
	PrefixDashboard     = "crams:admin:dashboard"
	PrefixSeatConflict  = "crams:admin:seat-conflicts"
	PrefixScheduleStats = "crams:admin:schedule-stats"
)

// CourseListKey builds the cache key for a filtered catalog listing.
func CourseListKey(department, semester string, year int, search string) string {
	return fmt.Sprintf("%slist:%s:%s:%d:%s", PrefixCourses, department, semester, year, search)
}

// CourseKey builds the cache key for a single course.
func CourseKey(id string) string {
	return PrefixCourses + "id:" + id
}
