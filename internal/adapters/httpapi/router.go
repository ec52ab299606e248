package httpapi

import (
	"context"

	"github.com/gin-gonic/gin"

	"feedline/internal/adapters/httpapi/middleware"
	postEntity "feedline/internal/core/post"
	userPort "feedline/internal/ports/user"
)

// Inbound ports: the use cases the controllers need, injected from outside.

type UserUseCase interface {
	Register(ctx context.Context, name, family, username, mobile, password string) (*userPort.UserDTO, error)
	Login(ctx context.Context, username, password string) (*userPort.LoginResponse, error)
}

type PostUseCase interface {
	Publish(ctx context.Context, authorID, text string) (postEntity.Ref, error)
	History(ctx context.Context, authorID string, from *postEntity.Ref, limit int) ([]*postEntity.Post, error)
}

type RelationUseCase interface {
	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	Followers(ctx context.Context, userID string) ([]string, error)
	Followees(ctx context.Context, userID string) ([]string, error)
}

type FeedUseCase interface {
	GetFeed(ctx context.Context, ownerID string, maxPerAuthor int) ([]*postEntity.Post, error)
}

func SetupRoutes(
	jwtSecret []byte,
	userUC UserUseCase,
	postUC PostUseCase,
	relationUC RelationUseCase,
	feedUC FeedUseCase,
) *gin.Engine {
	r := gin.Default()
	uc := NewUserController(userUC)
	pc := NewPostController(postUC)
	fc := NewFollowerController(relationUC)
	tc := NewTimelineController(feedUC)

	r.POST("/register", uc.Register)
	r.POST("/login", uc.Login)

	auth := r.Group("/", middleware.JWTAuth(jwtSecret))
	auth.POST("/post", pc.Publish)
	auth.GET("/posts", pc.History)
	auth.POST("/follow", fc.Follow)
	auth.POST("/unfollow", fc.Unfollow)
	auth.GET("/followers", fc.Followers)
	auth.GET("/following", fc.Following)
	auth.GET("/feed", tc.GetFeed)

	return r
}

// actingUser pulls the authenticated user ID set by the JWT middleware.
func actingUser(c *gin.Context) (string, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok && id != ""
}
