package api

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/nhanzalone1/echo-app-sub000/internal/mode"
	"github.com/nhanzalone1/echo-app-sub000/internal/session"
)

type ForceModeRequest struct {
	Mode mode.Mode `json:"mode" binding:"required,oneof=night morning"`
}

// withSession resolves the caller's running session, starting it on first use.
func withSession(app App, fn func(c *gin.Context, s *session.Session)) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := app.Sessions().Get(c.Request.Context(), currentUser(c))
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to start session")
			return
		}
		fn(c, s)
	}
}

func GetMode(app App) gin.HandlerFunc {
	return withSession(app, func(c *gin.Context, s *session.Session) {
		HandleSuccess(c, app.Logger(), s.Controller.Snapshot(), nil)
	})
}

func PostSignContract(app App) gin.HandlerFunc {
	return withSession(app, func(c *gin.Context, s *session.Session) {
		HandleSuccess(c, app.Logger(), s.Controller.SignContract(), nil)
	})
}

func PostArmProtocol(app App) gin.HandlerFunc {
	return withSession(app, func(c *gin.Context, s *session.Session) {
		HandleSuccess(c, app.Logger(), s.Controller.ArmProtocol(), nil)
	})
}

func PostForceMode(app App) gin.HandlerFunc {
	return withSession(app, func(c *gin.Context, s *session.Session) {
		var req ForceModeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid request: mode must be night or morning")
			return
		}
		HandleSuccess(c, app.Logger(), s.Controller.ForceMode(req.Mode), nil)
	})
}

func PostClearOverride(app App) gin.HandlerFunc {
	return withSession(app, func(c *gin.Context, s *session.Session) {
		HandleSuccess(c, app.Logger(), s.Controller.ClearOverride(), nil)
	})
}

func PostTap(app App) gin.HandlerFunc {
	return withSession(app, func(c *gin.Context, s *session.Session) {
		snap, fired := s.Trigger.Tap()
		HandleSuccess(c, app.Logger(), snap, map[string]any{"fired": fired})
	})
}

// StreamMode pushes a "mode" event on every controller change and a
// "missions" event after every archive refresh. The current snapshot is
// sent first.
func StreamMode(app App) gin.HandlerFunc {
	return withSession(app, func(c *gin.Context, s *session.Session) {
		snaps, stopSnaps := s.Controller.Subscribe()
		defer stopSnaps()
		missions, stopMissions := s.SubscribeMissions()
		defer stopMissions()

		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")
		ctx := c.Request.Context()
		c.Stream(func(w io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case snap, ok := <-snaps:
				if !ok {
					return false
				}
				c.SSEvent("mode", snap)
				return true
			case list, ok := <-missions:
				if !ok {
					return false
				}
				c.SSEvent("missions", list)
				return true
			}
		})
	})
}

// PostLogout stops the caller's controller. Archives already running finish.
func PostLogout(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ended := app.Sessions().End(currentUser(c).ID)
		HandleSuccess(c, app.Logger(), nil, map[string]any{"ended": ended})
	}
}
