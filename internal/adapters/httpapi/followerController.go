package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type FollowerController struct{ fc RelationUseCase }

func NewFollowerController(fc RelationUseCase) *FollowerController {
	return &FollowerController{fc: fc}
}

func (ctl *FollowerController) Follow(c *gin.Context) {
	var req struct {
		FollowedID string `json:"followed_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	userID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found in context"})
		return
	}
	if userID == req.FollowedID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot follow yourself"})
		return
	}

	isFollowing, err := ctl.fc.IsFollowing(c.Request.Context(), userID, req.FollowedID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not check follow status"})
		return
	}
	if isFollowing {
		c.JSON(http.StatusConflict, gin.H{"error": "already following this user"})
		return
	}

	if err := ctl.fc.Follow(c.Request.Context(), userID, req.FollowedID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not follow user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "successfully followed user"})
}

func (ctl *FollowerController) Unfollow(c *gin.Context) {
	var req struct {
		UnfollowedID string `json:"unfollowed_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	userID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found in context"})
		return
	}
	if userID == req.UnfollowedID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot unfollow yourself"})
		return
	}

	isFollowing, err := ctl.fc.IsFollowing(c.Request.Context(), userID, req.UnfollowedID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not check follow status"})
		return
	}
	if !isFollowing {
		c.JSON(http.StatusConflict, gin.H{"error": "you are not following this user"})
		return
	}

	if err := ctl.fc.Unfollow(c.Request.Context(), userID, req.UnfollowedID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not unfollow user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "successfully unfollowed user"})
}

func (ctl *FollowerController) Followers(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found in context"})
		return
	}
	followers, err := ctl.fc.Followers(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not get followers"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"followers": followers})
}

func (ctl *FollowerController) Following(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found in context"})
		return
	}
	following, err := ctl.fc.Followees(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not get following"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": following})
}
