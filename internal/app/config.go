package app

import (
	"strings"

	"github.com/yungbote/streamvault-backend/internal/logger"
	"github.com/yungbote/streamvault-backend/internal/utils"
)

type Config struct {
	Port             string
	JWTSecretKey     string
	BootstrapAdmin   string
	RedisAddr        string
	RedisPassword    string
	AllowlistEnabled bool
	AllowOrigins     []string
}

func LoadConfig(log *logger.Logger) Config {
	port := utils.GetEnv("PORT", "8080", log)
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	bootstrapAdmin := utils.GetEnv("BOOTSTRAP_ADMIN", "", log)
	redisAddr := utils.GetEnv("REDIS_ADDR", "localhost:6379", log)
	redisPassword := utils.GetEnv("REDIS_PASSWORD", "", log)
	allowlistEnabled := utils.GetEnvAsBool("ALLOWLIST_ENABLED", false, log)
	origins := utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log)
	return Config{
		Port:             port,
		JWTSecretKey:     jwtSecretKey,
		BootstrapAdmin:   bootstrapAdmin,
		RedisAddr:        redisAddr,
		RedisPassword:    redisPassword,
		AllowlistEnabled: allowlistEnabled,
		AllowOrigins:     strings.Split(origins, ","),
	}
}
