package handlers

import (
	"errors"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

var errInvalidPagination = errors.New("page and limit must be positive integers")

func parsePaginationParams(pageStr, limitStr string) (int64, int64, error) {
	page := int64(1)
	limit := int64(defaultPageLimit)

	if pageStr = strings.TrimSpace(pageStr); pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 {
			return 0, 0, errInvalidPagination
		}
		page = p
	}

	if limitStr = strings.TrimSpace(limitStr); limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 {
			return 0, 0, errInvalidPagination
		}
		limit = l
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	return page, limit, nil
}

// pageOptions returns find options for the page, newest first.
func pageOptions(page, limit int64) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
}
