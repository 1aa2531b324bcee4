package routers

import (
	"github.com/gin-gonic/gin"
	"github.com/lagrangedao/go-compute-to-data/internal/computing"
)

func C2DManager(router *gin.RouterGroup, svc *computing.C2DService) {

	router.GET("/environments", svc.GetEnvironments)
	router.POST("/price", svc.GetPrice)
	router.POST("/jobs", svc.StartJob)
	router.POST("/jobs/retry", svc.RetryJob)
	router.GET("/status", svc.GetStatus)
	router.DELETE("/status", svc.ResetStatus)
	router.DELETE("/credentials", svc.ResetCredentials)
	router.GET("/status/ws", svc.StreamStatus)
}
