package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"siteplanner/internal/cascade"
	"siteplanner/internal/logging"
	"siteplanner/internal/models"
)

type ProjectDeleter interface {
	DeleteProject(ctx context.Context, projectID, actor string) (*cascade.Result, error)
}

// OwnProjectDeleter runs the project cascade for an owner-initiated delete.
type OwnProjectDeleter interface {
	DeleteOwnProject(ctx context.Context, projectID string) (*cascade.Result, error)
}

type UserDeleter interface {
	DeleteUser(ctx context.Context, userID, actor string) (*cascade.Result, error)
}

type projectRequest struct {
	Name         string            `json:"name" binding:"required"`
	Description  string            `json:"description"`
	LandArea     models.LandArea   `json:"landArea"`
	Budget       models.Budget     `json:"budget"`
	Location     models.Location   `json:"location"`
	Status       string            `json:"status"`
	Requirements models.StringList `json:"requirements"`
}

func (r projectRequest) toProject(userID string) models.Project {
	status := strings.TrimSpace(r.Status)
	if status == "" {
		status = models.ProjectStatusPlanning
	}
	requirements := r.Requirements
	if requirements == nil {
		requirements = models.StringList{}
	}
	loc := r.Location
	loc.City = strings.TrimSpace(loc.City)
	budget := r.Budget
	budget.Currency = strings.ToUpper(strings.TrimSpace(budget.Currency))

	return models.Project{
		UserID:       userID,
		Name:         strings.TrimSpace(r.Name),
		Description:  strings.TrimSpace(r.Description),
		LandArea:     r.LandArea,
		Budget:       budget,
		Location:     loc,
		Status:       status,
		Requirements: requirements,
	}
}

// bindProject parses and validates the body; it writes the 400 response itself.
func bindProject(c *gin.Context, userID string) (models.Project, bool) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return models.Project{}, false
	}
	project := req.toProject(userID)
	if err := models.Validate(project); err != nil {
		respondValidationError(c, err)
		return models.Project{}, false
	}
	return project, true
}

func ListProjects(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c, "PROJECT")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		filter := bson.M{"userId": userID}
		if status := strings.TrimSpace(c.Query("status")); status != "" {
			filter["status"] = status
		}
		cursor, err := db.Collection(models.CollectionProjects).Find(ctx, filter,
			options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
		if err != nil {
			respondDBError(c, "PROJECT", err)
			return
		}
		defer cursor.Close(ctx)

		projects := make([]models.Project, 0)
		if err := cursor.All(ctx, &projects); err != nil {
			respondDBError(c, "PROJECT", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": projects})
	}
}

// CreateProject requires the owner profile to exist before the insert.
func CreateProject(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c, "PROJECT")
		if !ok {
			return
		}
		project, ok := bindProject(c, userID)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := db.Collection(models.CollectionUsers).FindOne(ctx, bson.M{"_id": userID}).Err(); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				respondWithError(c, http.StatusNotFound, "PROJECT", "user not found")
				return
			}
			respondDBError(c, "PROJECT", err)
			return
		}

		now := time.Now().UTC()
		project.CreatedAt = now
		project.UpdatedAt = now
		res, err := db.Collection(models.CollectionProjects).InsertOne(ctx, project)
		if err != nil {
			respondDBError(c, "PROJECT", err)
			return
		}
		project.ID, _ = res.InsertedID.(primitive.ObjectID)
		recordActivity(ctx, db, userID, models.ActivityProjectCreated, "created project "+project.Name, project.ID.Hex())

		logging.Area("PROJECT").WithField("id", project.ID.Hex()).Info("project created")
		c.JSON(http.StatusCreated, gin.H{"data": project})
	}
}

func GetProject(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c, "PROJECT")
		if !ok {
			return
		}
		projectID, ok := parseObjectID(c, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		project, err := findOwnedProject(ctx, db, projectID, userID)
		if err != nil {
			respondProjectLookup(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": project})
	}
}

func UpdateProject(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c, "PROJECT")
		if !ok {
			return
		}
		projectID, ok := parseObjectID(c, "id")
		if !ok {
			return
		}
		project, ok := bindProject(c, userID)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := db.Collection(models.CollectionProjects).UpdateOne(ctx,
			bson.M{"_id": projectID, "userId": userID},
			bson.M{"$set": bson.M{
				"name":         project.Name,
				"description":  project.Description,
				"landArea":     project.LandArea,
				"budget":       project.Budget,
				"location":     project.Location,
				"status":       project.Status,
				"requirements": project.Requirements,
				"updatedAt":    time.Now().UTC(),
			}},
		)
		if err != nil {
			respondDBError(c, "PROJECT", err)
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, http.StatusNotFound, "PROJECT", "project not found")
			return
		}
		recordActivity(ctx, db, userID, models.ActivityProjectUpdated, "updated project "+project.Name, projectID.Hex())

		c.JSON(http.StatusOK, gin.H{"message": "project updated"})
	}
}

// DeleteProject lets the owner remove a project with everything attached to it.
func DeleteProject(db *mongo.Database, deleter OwnProjectDeleter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c, "PROJECT")
		if !ok {
			return
		}
		projectID, ok := parseObjectID(c, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if _, err := findOwnedProject(ctx, db, projectID, userID); err != nil {
			respondProjectLookup(c, err)
			return
		}

		result, err := deleter.DeleteOwnProject(ctx, projectID.Hex())
		if err != nil {
			respondCascadeError(c, "PROJECT", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": result})
	}
}

func findOwnedProject(ctx context.Context, db *mongo.Database, projectID primitive.ObjectID, userID string) (models.Project, error) {
	var project models.Project
	err := db.Collection(models.CollectionProjects).FindOne(ctx, bson.M{"_id": projectID, "userId": userID}).Decode(&project)
	return project, err
}

func respondProjectLookup(c *gin.Context, err error) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		respondWithError(c, http.StatusNotFound, "PROJECT", "project not found")
		return
	}
	respondDBError(c, "PROJECT", err)
}

// respondCascadeError hides the failing step from the client; the workflow
// has already logged it.
func respondCascadeError(c *gin.Context, route string, err error) {
	if errors.Is(err, cascade.ErrNotFound) {
		respondWithError(c, http.StatusNotFound, route, "not found")
		return
	}
	logging.Area(route).WithError(err).Error("cascade delete failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
}
