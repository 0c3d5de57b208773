package handlers

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"siteplanner/internal/logging"
	"siteplanner/internal/models"
)

const exportTimeout = 30 * time.Second

// exporter streams one collection as CSV rows.
type exporter struct {
	header []string
	rows   func(ctx context.Context, cursor *mongo.Cursor, write func([]string) error) error
}

var exporters = map[string]exporter{
	models.CollectionUsers: {
		header: []string{"id", "email", "name", "phone", "company", "role", "createdAt", "lastLoginAt"},
		rows: func(ctx context.Context, cursor *mongo.Cursor, write func([]string) error) error {
			for cursor.Next(ctx) {
				var u models.User
				if err := cursor.Decode(&u); err != nil {
					return err
				}
				if err := write(userRow(u)); err != nil {
					return err
				}
			}
			return cursor.Err()
		},
	},
	models.CollectionProjects: {
		header: []string{"id", "userId", "name", "status", "landArea", "landUnit", "budget", "currency", "budgetCategory", "locationType", "city", "requirements", "createdAt"},
		rows: func(ctx context.Context, cursor *mongo.Cursor, write func([]string) error) error {
			for cursor.Next(ctx) {
				var p models.Project
				if err := cursor.Decode(&p); err != nil {
					return err
				}
				if err := write(projectRow(p)); err != nil {
					return err
				}
			}
			return cursor.Err()
		},
	},
	models.CollectionQueries: {
		header: []string{"id", "userId", "projectId", "query", "response", "createdAt"},
		rows: func(ctx context.Context, cursor *mongo.Cursor, write func([]string) error) error {
			for cursor.Next(ctx) {
				var q models.Query
				if err := cursor.Decode(&q); err != nil {
					return err
				}
				if err := write(queryRow(q)); err != nil {
					return err
				}
			}
			return cursor.Err()
		},
	},
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func userRow(u models.User) []string {
	lastLogin := ""
	if u.LastLoginAt != nil {
		lastLogin = formatTime(*u.LastLoginAt)
	}
	return []string{u.ID, u.Email, u.Name, u.Phone, u.Company, u.Role, formatTime(u.CreatedAt), lastLogin}
}

func projectRow(p models.Project) []string {
	return []string{
		p.ID.Hex(),
		p.UserID,
		p.Name,
		p.Status,
		formatFloat(p.LandArea.Value),
		p.LandArea.Unit,
		formatFloat(p.Budget.Value),
		p.Budget.Currency,
		p.Budget.Category,
		p.Location.Type,
		p.Location.City,
		strings.Join(p.Requirements, "; "),
		formatTime(p.CreatedAt),
	}
}

func queryRow(q models.Query) []string {
	return []string{q.ID.Hex(), q.UserID, q.ProjectID, q.Query, q.Response, formatTime(q.CreatedAt)}
}

// AdminExport streams users, projects or queries as a CSV attachment.
func AdminExport(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, "EXPORT")

		collection := strings.TrimSpace(c.Param("collection"))
		exp, ok := exporters[collection]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported collection"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), exportTimeout)
		defer cancel()

		cursor, err := db.Collection(collection).Find(ctx, bson.M{},
			options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
		if err != nil {
			respondDBError(c, "EXPORT", err)
			return
		}
		defer cursor.Close(ctx)

		filename := fmt.Sprintf("%s-%s.csv", collection, time.Now().UTC().Format("20060102"))
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Status(http.StatusOK)

		w := csv.NewWriter(c.Writer)
		if err := w.Write(exp.header); err != nil {
			logging.Area("EXPORT").WithError(err).Error("write header failed")
			return
		}
		if err := exp.rows(ctx, cursor, w.Write); err != nil {
			// Headers are already sent; the client sees a truncated file.
			logging.Area("EXPORT").WithError(err).WithField("collection", collection).Error("export aborted")
		}
		w.Flush()
		if err := w.Error(); err != nil {
			logging.Area("EXPORT").WithError(err).Error("flush failed")
		}
	}
}
