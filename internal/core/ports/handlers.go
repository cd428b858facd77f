package ports

import (
	"context"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

type OpsHandler interface {
	Health(c *gin.Context)
	Ready(c *gin.Context)
}
