package container

import (
	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/account-portal/config"
	"github.com/oksasatya/account-portal/internal/domain/repository"
	"github.com/oksasatya/account-portal/pkg/helpers"
	"github.com/oksasatya/account-portal/pkg/mailer"
)

// app-level container to share constructed components across packages.
// Optional integrations (Redis, GCS, Elasticsearch, RabbitMQ) stay nil when
// not configured and the components using them degrade accordingly.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	userRepo    repository.UserRepository
	redisClient *redis.Client
	gcsClient   *storage.Client

	jwtManager *helpers.JWTManager

	mailPub  mailer.Publisher
	esClient *elasticsearch.Client
)

func SetConfig(c *config.Config)              { cfg = c }
func GetConfig() *config.Config               { return cfg }
func SetLogger(l *logrus.Logger)              { logger = l }
func GetLogger() *logrus.Logger               { return logger }
func SetUserRepo(r repository.UserRepository) { userRepo = r }
func GetUserRepo() repository.UserRepository  { return userRepo }
func SetRedis(r *redis.Client)                { redisClient = r }
func GetRedis() *redis.Client                 { return redisClient }
func SetGCS(s *storage.Client)                { gcsClient = s }
func GetGCS() *storage.Client                 { return gcsClient }
func SetJWT(m *helpers.JWTManager)            { jwtManager = m }
func SetMailPublisher(p mailer.Publisher)     { mailPub = p }
func GetMailPublisher() mailer.Publisher      { return mailPub }
func SetES(c *elasticsearch.Client)           { esClient = c }
func GetES() *elasticsearch.Client            { return esClient }

func GetJWT() *helpers.JWTManager {
	if jwtManager != nil {
		return jwtManager
	}
	return helpers.DefaultJWT()
}

// Reset clears every component; used by tests that build several apps.
func Reset() {
	cfg, logger, userRepo, redisClient, gcsClient = nil, nil, nil, nil, nil
	jwtManager, mailPub, esClient = nil, nil, nil
}
