package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type TimelineController struct{ tc FeedUseCase }

func NewTimelineController(tc FeedUseCase) *TimelineController {
	return &TimelineController{tc: tc}
}

func (ctl *TimelineController) GetFeed(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found in context"})
		return
	}

	// Caps how many posts per followed author are pulled into the feed.
	perAuthorStr := c.DefaultQuery("per_author", "0")
	perAuthor, err := strconv.Atoi(perAuthorStr)
	if err != nil || perAuthor < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid per_author"})
		return
	}

	feed, err := ctl.tc.GetFeed(c.Request.Context(), userID, perAuthor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch feed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"feed": feed})
}
