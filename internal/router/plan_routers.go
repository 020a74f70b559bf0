package router

import (
	"github.com/gin-gonic/gin"

	"github.com/navid-fn/planrelay/internal/handler"
)

func registerPlanRoutes(router *gin.RouterGroup, planHandler *handler.PlanHandler) {
	router.POST("/email-plan", planHandler.EmailPlan)
}
