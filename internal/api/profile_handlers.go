package api

import (
	"github.com/gin-gonic/gin"
	"github.com/nhanzalone1/echo-app-sub000/internal/service"
)

func GetSchedule(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := service.LoadProfile(c.Request.Context(), app.ProfileRepo(), currentUser(c))
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to load profile")
			return
		}
		HandleSuccess(c, app.Logger(), service.ScheduleRequest{
			MorningStartTime: p.MorningStartTime,
			NightStartTime:   p.NightStartTime,
		}, nil)
	}
}

// PutSchedule persists the new boundaries and hands them to the running
// controller, which re-evaluates immediately.
func PutSchedule(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		var req service.ScheduleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}
		_, sched, err := service.UpdateSchedule(c.Request.Context(), app.ProfileRepo(), user, &req)
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to update schedule")
			return
		}
		s, err := app.Sessions().Get(c.Request.Context(), user)
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to start session")
			return
		}
		HandleSuccess(c, app.Logger(), s.Controller.UpdateSchedule(sched), nil)
	}
}

func PostAllyInvite(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := service.CreateInvite(c.Request.Context(), app.ProfileRepo(), currentUser(c))
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to create invite")
			return
		}
		HandleSuccess(c, app.Logger(), gin.H{"invite_code": p.InviteCode}, nil)
	}
}

func PostAllyAccept(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.AcceptInviteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}
		p, err := service.AcceptInvite(c.Request.Context(), app.ProfileRepo(), currentUser(c), &req)
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to accept invite")
			return
		}
		HandleSuccess(c, app.Logger(), gin.H{"ally_id": p.AllyID}, nil)
	}
}

func GetAllyMissions(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		missions, err := service.AllyMissions(c.Request.Context(), app.ProfileRepo(), app.MissionRepo(), currentUser(c))
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to fetch ally missions")
			return
		}
		HandleSuccess(c, app.Logger(), missions, nil)
	}
}
