package services_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"blockjack-backend/internal/services"
)

func setupTestRedis(t *testing.T) (*services.RedisService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := services.NewRedisServiceFromClient(client)
	t.Cleanup(func() { svc.Close() })
	return svc, mr
}

func quietLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}
