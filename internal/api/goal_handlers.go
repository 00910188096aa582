package api

import (
	"github.com/gin-gonic/gin"
	"github.com/nhanzalone1/echo-app-sub000/internal/service"
)

func PostGoal(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		var req service.GoalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid request: title required")
			return
		}

		goal, err := service.CreateGoal(c.Request.Context(), app.GoalRepo(), user, &req)
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to save goal")
			return
		}

		HandleCreated(c, app.Logger(), goal)
	}
}

func GetGoals(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		goals, err := app.GoalRepo().ListGoals(c.Request.Context(), user.ID)
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to fetch goals")
			return
		}
		HandleSuccess(c, app.Logger(), goals, map[string]any{"count": len(goals)})
	}
}

func DeleteGoal(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if err := app.GoalRepo().DeleteGoal(c.Request.Context(), user.ID, c.Param("id")); err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to delete goal")
			return
		}
		HandleSuccess(c, app.Logger(), nil, map[string]any{"deleted": c.Param("id")})
	}
}
