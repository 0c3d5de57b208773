package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"siteplanner/internal/logging"
	"siteplanner/internal/models"
)

const floorPlanUploadFolder = "floorplans"

type floorPlanInput struct {
	Name        string  `json:"name" form:"name"`
	Description string  `json:"description" form:"description"`
	Area        float64 `json:"area" form:"area"`
	ImagePath   string  `json:"-"`
}

// parseFloorPlanRequest accepts JSON or a multipart form with an optional
// "image" file.
func parseFloorPlanRequest(c *gin.Context) (floorPlanInput, error) {
	var input floorPlanInput
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBindJSON(&input); err != nil {
			return floorPlanInput{}, err
		}
		input.Name = strings.TrimSpace(input.Name)
		input.Description = strings.TrimSpace(input.Description)
		return input, nil
	}

	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		return floorPlanInput{}, err
	}
	input.Name = strings.TrimSpace(c.PostForm("name"))
	input.Description = strings.TrimSpace(c.PostForm("description"))
	if value := strings.TrimSpace(c.PostForm("area")); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return floorPlanInput{}, errors.New("area must be a number")
		}
		input.Area = parsed
	}

	file, err := c.FormFile("image")
	if err == nil {
		imagePath, err := saveImage(file, floorPlanUploadFolder)
		if err != nil {
			return floorPlanInput{}, err
		}
		input.ImagePath = imagePath
	} else if !errors.Is(err, http.ErrMissingFile) {
		return floorPlanInput{}, err
	}
	return input, nil
}

func ListFloorPlans(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c, "FLOORPLAN")
		if !ok {
			return
		}
		projectID, ok := parseObjectID(c, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		cursor, err := db.Collection(models.CollectionFloorPlans).Find(ctx, bson.M{
			"projectId": projectID.Hex(),
			"userId":    userID,
		})
		if err != nil {
			respondDBError(c, "FLOORPLAN", err)
			return
		}
		defer cursor.Close(ctx)

		plans := make([]models.FloorPlan, 0)
		if err := cursor.All(ctx, &plans); err != nil {
			respondDBError(c, "FLOORPLAN", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": plans})
	}
}

func CreateFloorPlan(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c, "FLOORPLAN")
		if !ok {
			return
		}
		projectID, ok := parseObjectID(c, "id")
		if !ok {
			return
		}

		input, err := parseFloorPlanRequest(c)
		if err != nil {
			respondValidationError(c, err)
			return
		}
		plan := models.FloorPlan{
			ProjectID:   projectID.Hex(),
			UserID:      userID,
			Name:        input.Name,
			Description: input.Description,
			Area:        input.Area,
			ImagePath:   input.ImagePath,
			CreatedAt:   time.Now().UTC(),
		}
		if err := models.Validate(plan); err != nil {
			discardUpload(input.ImagePath)
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if _, err := findOwnedProject(ctx, db, projectID, userID); err != nil {
			discardUpload(input.ImagePath)
			respondProjectLookup(c, err)
			return
		}

		res, err := db.Collection(models.CollectionFloorPlans).InsertOne(ctx, plan)
		if err != nil {
			discardUpload(input.ImagePath)
			respondDBError(c, "FLOORPLAN", err)
			return
		}
		plan.ID, _ = res.InsertedID.(primitive.ObjectID)
		recordActivity(ctx, db, userID, models.ActivityFloorPlanAdded, "added floor plan "+plan.Name, plan.ProjectID)

		c.JSON(http.StatusCreated, gin.H{"data": plan})
	}
}

func DeleteFloorPlan(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c, "FLOORPLAN")
		if !ok {
			return
		}
		projectID, ok := parseObjectID(c, "id")
		if !ok {
			return
		}
		planID, ok := parseObjectID(c, "planId")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		var plan models.FloorPlan
		err := db.Collection(models.CollectionFloorPlans).FindOneAndDelete(ctx, bson.M{
			"_id":       planID,
			"projectId": projectID.Hex(),
			"userId":    userID,
		}).Decode(&plan)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				respondWithError(c, http.StatusNotFound, "FLOORPLAN", "floor plan not found")
				return
			}
			respondDBError(c, "FLOORPLAN", err)
			return
		}
		discardUpload(plan.ImagePath)

		c.JSON(http.StatusOK, gin.H{"message": "floor plan deleted"})
	}
}

func discardUpload(relPath string) {
	if err := safeDeleteUpload(relPath); err != nil {
		logging.Area("UPLOAD").WithError(err).WithField("path", relPath).Warn("upload not removed")
	}
}
