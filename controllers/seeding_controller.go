package controllers

import (
	"net/http"

	"dashboard-service/seeding"

	"github.com/gin-gonic/gin"
)

// SeedingSession is the read side of the background seeding session.
type SeedingSession interface {
	Snapshot() seeding.Snapshot
	Progress() int
	State() seeding.State
}

type SeedingController struct {
	session SeedingSession
	service string
}

func NewSeedingController(session SeedingSession, service string) *SeedingController {
	return &SeedingController{session: session, service: service}
}

// Status returns the full snapshot of the seeding session.
func (sc *SeedingController) Status(c *gin.Context) {
	c.JSON(http.StatusOK, sc.session.Snapshot())
}

// Health reports liveness. The service is healthy while seeding runs.
func (sc *SeedingController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"service":         sc.service,
		"seeding_state":   sc.session.State(),
		"seeding_percent": sc.session.Progress(),
	})
}

// Ready answers 200 once the database holds its setup data.
func (sc *SeedingController) Ready(c *gin.Context) {
	state := sc.session.State()
	if state == seeding.StateCompleted || state == seeding.StateSkipped {
		c.JSON(http.StatusOK, gin.H{"status": "ready", "seeding_state": state})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"status":          "not_ready",
		"seeding_state":   state,
		"seeding_percent": sc.session.Progress(),
	})
}
