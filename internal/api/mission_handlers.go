package api

import (
	"github.com/gin-gonic/gin"
	"github.com/nhanzalone1/echo-app-sub000/internal/service"
)

func PostMission(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		var req service.MissionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}

		m, err := service.CreateMission(c.Request.Context(), app.MissionRepo(), user, &req)
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to save mission")
			return
		}
		HandleCreated(c, app.Logger(), m)
	}
}

// GetMissions lists the board; ?all=true includes archived history.
func GetMissions(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		ctx := c.Request.Context()

		var err error
		var missions interface{}
		if c.Query("all") == "true" {
			missions, err = app.MissionRepo().ListMissions(ctx, user.ID)
		} else {
			missions, err = service.ActiveMissions(ctx, app.MissionRepo(), user.ID)
		}
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to fetch missions")
			return
		}
		HandleSuccess(c, app.Logger(), missions, nil)
	}
}

func CompleteMission(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := service.CompleteMission(c.Request.Context(), app.MissionRepo(), currentUser(c), c.Param("id"))
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to complete mission")
			return
		}
		HandleSuccess(c, app.Logger(), m, nil)
	}
}

func CrushMission(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.CrushRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}
		m, err := service.CrushMission(c.Request.Context(), app.MissionRepo(), currentUser(c), c.Param("id"), &req)
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to crush mission")
			return
		}
		HandleSuccess(c, app.Logger(), m, nil)
	}
}

func UncompleteMission(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := service.UncompleteMission(c.Request.Context(), app.MissionRepo(), currentUser(c), c.Param("id"))
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to reopen mission")
			return
		}
		HandleSuccess(c, app.Logger(), m, nil)
	}
}

func DeleteMission(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if err := app.MissionRepo().DeleteMission(c.Request.Context(), user.ID, c.Param("id")); err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to delete mission")
			return
		}
		HandleSuccess(c, app.Logger(), nil, map[string]any{"deleted": c.Param("id")})
	}
}

// ClearBoard runs the end-of-day archive on demand.
func ClearBoard(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := app.Sessions().Get(c.Request.Context(), currentUser(c))
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to start session")
			return
		}
		res, err := s.Archiver.Run(c.Request.Context(), s.UserID)
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to clear board")
			return
		}
		HandleSuccess(c, app.Logger(), res.Missions, map[string]any{
			"deleted":     res.Deleted,
			"deactivated": res.Deactivated,
		})
	}
}
