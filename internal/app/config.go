package app

import (
	"strings"

	"github.com/studyfold/studyspace-backend/internal/platform/logger"
	"github.com/studyfold/studyspace-backend/internal/utils"
)

type Config struct {
	HTTPAddr           string
	AllowOrigins       []string
	AgentCallbackToken string
	Environment        string
}

func LoadConfig(log *logger.Logger) Config {
	origins := utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log)
	var allowOrigins []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowOrigins = append(allowOrigins, o)
		}
	}
	return Config{
		HTTPAddr:           utils.GetEnv("HTTP_ADDR", ":8080", log),
		AllowOrigins:       allowOrigins,
		AgentCallbackToken: utils.GetEnv("AGENT_CALLBACK_TOKEN", "", log),
		Environment:        utils.GetEnv("APP_ENV", "development", log),
	}
}
