package api

import (
	"github.com/gin-gonic/gin"
	"github.com/nhanzalone1/echo-app-sub000/internal/service"
)

func PostThought(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.ThoughtRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}
		t, err := service.CreateThought(c.Request.Context(), app.ThoughtRepo(), currentUser(c), &req)
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to save thought")
			return
		}
		HandleCreated(c, app.Logger(), t)
	}
}

func GetThoughts(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		thoughts, err := app.ThoughtRepo().ListThoughts(c.Request.Context(), currentUser(c).ID)
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to fetch thoughts")
			return
		}
		HandleSuccess(c, app.Logger(), thoughts, nil)
	}
}
