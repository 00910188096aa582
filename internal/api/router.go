package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter wires every route. auth guards everything under /api.
func NewRouter(app App, auth gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestIDMiddleware(), RequestLogger(app.Logger()))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	g := r.Group("/api", auth)

	m := g.Group("/mode")
	m.GET("", GetMode(app))
	m.GET("/stream", StreamMode(app))
	m.POST("/contract", PostSignContract(app))
	m.POST("/arm", PostArmProtocol(app))
	m.POST("/force", PostForceMode(app))
	m.POST("/override/clear", PostClearOverride(app))
	m.POST("/tap", PostTap(app))

	g.GET("/profile/schedule", GetSchedule(app))
	g.PUT("/profile/schedule", PutSchedule(app))

	g.POST("/goals", PostGoal(app))
	g.GET("/goals", GetGoals(app))
	g.DELETE("/goals/:id", DeleteGoal(app))

	g.POST("/missions", PostMission(app))
	g.GET("/missions", GetMissions(app))
	g.POST("/missions/clear", ClearBoard(app))
	g.PATCH("/missions/:id/complete", CompleteMission(app))
	g.PATCH("/missions/:id/crush", CrushMission(app))
	g.PATCH("/missions/:id/uncomplete", UncompleteMission(app))
	g.DELETE("/missions/:id", DeleteMission(app))

	g.POST("/thoughts", PostThought(app))
	g.GET("/thoughts", GetThoughts(app))

	g.POST("/ally/invite", PostAllyInvite(app))
	g.POST("/ally/accept", PostAllyAccept(app))
	g.GET("/ally/missions", GetAllyMissions(app))

	g.POST("/session/logout", PostLogout(app))
	return r
}
