package automove

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Status is the answer to a status query.
type Status struct {
	EngineReady bool   `json:"engineReady"`
	Mode        string `json:"mode"`
	State       string `json:"state,omitempty"`
	Variant     string `json:"variant"`
	Depth       int    `json:"depth"`
}

// StatusOf reports the state of source and settings. session may be nil.
func StatusOf(source MoveSource, session *Session, settings *Settings) Status {
	opts := settings.Snapshot()
	st := Status{Variant: opts.Variant, Depth: opts.SearchDepth}
	if source != nil {
		st.Mode = source.Name()
		st.EngineReady = source.Ready()
	}
	if session != nil {
		st.State = session.State().String()
	}
	return st
}

// NewControlRouter exposes the runtime configuration surface:
//
//	GET  /status  current readiness, variant and depth
//	POST /config  partial update of variant and searchDepth
//
// Config changes apply to the next search only.
func NewControlRouter(settings *Settings, status func() Status) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, status())
	})
	router.POST("/config", func(c *gin.Context) {
		var patch OptionsPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		opts, err := settings.Apply(patch)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "config": opts})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "config": opts})
	})
	return router
}
