package handlers

import (
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"juggerconnect/database"
	"juggerconnect/models"
)

// publicUserFields is the projection for user listings.
var publicUserFields = bson.M{
	"name": 1, "email": 1, "bio": 1, "avatar": 1,
	"isOnline": 1, "lastSeen": 1, "followers": 1, "following": 1,
	"createdAt": 1,
}

// GetUsers lists users (excluding the caller) with optional name/email
// search, paginated.
func GetUsers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	search := c.Query("search")

	filter := bson.M{"_id": bson.M{"$ne": userID}}
	if search != "" {
		filter["$or"] = bson.A{
			bson.M{"name": bson.M{"$regex": primitive.Regex{Pattern: search, Options: "i"}}},
			bson.M{"email": bson.M{"$regex": primitive.Regex{Pattern: search, Options: "i"}}},
		}
	}

	ctx, cancel := requestContext()
	defer cancel()

	opts := options.Find().
		SetProjection(publicUserFields).
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := database.Users.Find(ctx, filter, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}
	defer cursor.Close(ctx)

	users := make([]models.User, 0, limit)
	if err := cursor.All(ctx, &users); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode users"})
		return
	}

	total, err := database.Users.CountDocuments(ctx, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":       users,
		"currentPage": page,
		"totalPages":  int(math.Ceil(float64(total) / float64(limit))),
		"totalUsers":  total,
	})
}

func GetUserByID(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	var user models.User
	err = database.Users.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(publicUserFields)).Decode(&user)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile updates the caller's name, bio and avatar.
func UpdateProfile(c *gin.Context) {
	var req struct {
		Name   *string `json:"name"`
		Bio    *string `json:"bio"`
		Avatar *string `json:"avatar"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	set := bson.M{}
	if req.Name != nil && *req.Name != "" {
		set["name"] = *req.Name
	}
	if req.Bio != nil {
		set["bio"] = *req.Bio
	}
	if req.Avatar != nil && *req.Avatar != "" {
		set["avatar"] = *req.Avatar
	}
	if len(set) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No changes to update"})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	result := database.Users.FindOneAndUpdate(
		ctx,
		bson.M{"_id": userID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(publicUserFields),
	)

	var user models.User
	if err := result.Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// FollowUser adds the target to the caller's following set, and the caller
// to the target's followers. $addToSet keeps repeats out.
func FollowUser(c *gin.Context) {
	targetID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if targetID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot follow yourself"})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	result, err := database.Users.UpdateOne(
		ctx,
		bson.M{"_id": targetID},
		bson.M{"$addToSet": bson.M{"followers": userID}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to follow user"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User to follow not found"})
		return
	}
	if result.ModifiedCount == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You are already following this user"})
		return
	}

	if _, err := database.Users.UpdateOne(
		ctx,
		bson.M{"_id": userID},
		bson.M{"$addToSet": bson.M{"following": targetID}},
	); err != nil {
		log.Printf("Follow back-reference error: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "User followed successfully"})
}

// UnfollowUser is the inverse of FollowUser.
func UnfollowUser(c *gin.Context) {
	targetID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if targetID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot unfollow yourself"})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	result, err := database.Users.UpdateOne(
		ctx,
		bson.M{"_id": targetID},
		bson.M{"$pull": bson.M{"followers": userID}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unfollow user"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User to unfollow not found"})
		return
	}
	if result.ModifiedCount == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You are not following this user"})
		return
	}

	if _, err := database.Users.UpdateOne(
		ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"following": targetID}},
	); err != nil {
		log.Printf("Unfollow back-reference error: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "User unfollowed successfully"})
}

func followList(c *gin.Context, field string) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	var user models.User
	err = database.Users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	ids := user.Followers
	if field == "following" {
		ids = user.Following
	}

	if len(ids) == 0 {
		c.JSON(http.StatusOK, []models.User{})
		return
	}

	cursor, err := database.Users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(publicUserFields))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	defer cursor.Close(ctx)

	users := make([]models.User, 0, len(ids))
	if err := cursor.All(ctx, &users); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, users)
}

func GetFollowers(c *gin.Context) { followList(c, "followers") }
func GetFollowing(c *gin.Context) { followList(c, "following") }

// SearchUsers is the quick search box: name/email substring, capped at 20,
// each result annotated with whether the caller follows them.
func SearchUsers(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusOK, gin.H{"users": []any{}})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	filter := bson.M{
		"_id": bson.M{"$ne": userID},
		"$or": bson.A{
			bson.M{"name": bson.M{"$regex": primitive.Regex{Pattern: q, Options: "i"}}},
			bson.M{"email": bson.M{"$regex": primitive.Regex{Pattern: q, Options: "i"}}},
		},
	}

	cursor, err := database.Users.Find(ctx, filter, options.Find().
		SetProjection(publicUserFields).
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(20))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search users"})
		return
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode users"})
		return
	}

	var me models.User
	if err := database.Users.FindOne(ctx, bson.M{"_id": userID}).Decode(&me); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	following := make(map[primitive.ObjectID]bool, len(me.Following))
	for _, id := range me.Following {
		following[id] = true
	}

	results := make([]gin.H, len(users))
	for i, u := range users {
		results[i] = gin.H{
			"user":        u,
			"isFollowing": following[u.ID],
		}
	}

	c.JSON(http.StatusOK, gin.H{"users": results})
}
