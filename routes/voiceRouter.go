package routes

import (
	"go-restaurant-pos/controllers"

	"github.com/gin-gonic/gin"
)

func VoiceRoutes(incomingRoutes *gin.Engine, ctl *controllers.Controller) {
	incomingRoutes.POST("/voice/parse", ctl.ParseVoice())
}
