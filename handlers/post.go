package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"juggerconnect/database"
	"juggerconnect/models"
)

const maxPostLength = 2000

func CreatePost(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
		Image   string `json:"image,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Post content is required"})
		return
	}
	if utf8.RuneCountInString(req.Content) > maxPostLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Post content is too long"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	now := time.Now()
	post := models.Post{
		ID:        primitive.NewObjectID(),
		Author:    userID,
		Content:   req.Content,
		Image:     req.Image,
		Likes:     []primitive.ObjectID{},
		Comments:  []models.Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := database.Posts.InsertOne(ctx, post); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	c.JSON(http.StatusCreated, post)
}

// GetFeed returns all posts, newest first, paginated.
func GetFeed(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	ctx, cancel := requestContext()
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := database.Posts.Find(ctx, bson.M{}, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}
	defer cursor.Close(ctx)

	posts := make([]models.Post, 0, limit)
	if err := cursor.All(ctx, &posts); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode posts"})
		return
	}

	total, err := database.Posts.CountDocuments(ctx, bson.M{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	authorIDs := make([]primitive.ObjectID, 0, len(posts))
	seen := make(map[primitive.ObjectID]struct{}, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.Author]; !ok {
			seen[p.Author] = struct{}{}
			authorIDs = append(authorIDs, p.Author)
		}
	}
	authors, err := loadUserSummaries(ctx, authorIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	results := make([]gin.H, len(posts))
	for i, p := range posts {
		results[i] = gin.H{
			"post":   p,
			"author": authors[p.Author],
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":       results,
		"currentPage": page,
		"totalPages":  int(math.Ceil(float64(total) / float64(limit))),
		"totalPosts":  total,
	})
}

func findPost(c *gin.Context) (*models.Post, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return nil, false
	}

	ctx, cancel := requestContext()
	defer cancel()

	var post models.Post
	err = database.Posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return nil, false
	}
	return &post, true
}

func GetPost(c *gin.Context) {
	post, ok := findPost(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	authors, err := loadUserSummaries(ctx, []primitive.ObjectID{post.Author})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": post, "author": authors[post.Author]})
}

// UpdatePost replaces the content of the caller's own post.
func UpdatePost(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Post content is required"})
		return
	}
	if utf8.RuneCountInString(req.Content) > maxPostLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Post content is too long"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	post, ok := findPost(c)
	if !ok {
		return
	}
	if post.Author != userID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authorized to update this post"})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	if _, err := database.Posts.UpdateOne(
		ctx,
		bson.M{"_id": post.ID},
		bson.M{"$set": bson.M{"content": req.Content, "updatedAt": time.Now()}},
	); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post updated successfully"})
}

func DeletePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	post, ok := findPost(c)
	if !ok {
		return
	}
	if post.Author != userID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authorized to delete this post"})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	if _, err := database.Posts.DeleteOne(ctx, bson.M{"_id": post.ID}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

// LikePost toggles the caller's like on a post.
func LikePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	post, ok := findPost(c)
	if !ok {
		return
	}

	liked := false
	for _, id := range post.Likes {
		if id == userID {
			liked = true
			break
		}
	}

	update := bson.M{"$addToSet": bson.M{"likes": userID}}
	if liked {
		update = bson.M{"$pull": bson.M{"likes": userID}}
	}

	ctx, cancel := requestContext()
	defer cancel()

	if _, err := database.Posts.UpdateOne(ctx, bson.M{"_id": post.ID}, update); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update like"})
		return
	}

	if liked {
		c.JSON(http.StatusOK, gin.H{"message": "Post unliked"})
	} else {
		c.JSON(http.StatusOK, gin.H{"message": "Post liked"})
	}
}

func AddComment(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comment text is required"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	post, ok := findPost(c)
	if !ok {
		return
	}

	comment := models.Comment{
		ID:        primitive.NewObjectID(),
		User:      userID,
		Text:      req.Text,
		CreatedAt: time.Now(),
	}

	ctx, cancel := requestContext()
	defer cancel()

	if _, err := database.Posts.UpdateOne(
		ctx,
		bson.M{"_id": post.ID},
		bson.M{"$push": bson.M{"comments": comment}},
	); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add comment"})
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// RemoveComment deletes a comment; allowed for the comment's author or the
// post's author.
func RemoveComment(c *gin.Context) {
	commentID, err := primitive.ObjectIDFromHex(c.Param("commentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid comment ID"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	post, ok := findPost(c)
	if !ok {
		return
	}

	var comment *models.Comment
	for i := range post.Comments {
		if post.Comments[i].ID == commentID {
			comment = &post.Comments[i]
			break
		}
	}
	if comment == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}
	if comment.User != userID && post.Author != userID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authorized to remove this comment"})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	if _, err := database.Posts.UpdateOne(
		ctx,
		bson.M{"_id": post.ID},
		bson.M{"$pull": bson.M{"comments": bson.M{"_id": commentID}}},
	); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove comment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment removed successfully"})
}
