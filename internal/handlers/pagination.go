package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 50
)

// pageParams reads page and limit from the query string. Missing or invalid
// values fall back to the defaults and limit is capped at maxLimit.
func pageParams(c *fiber.Ctx, defaultLimit int, maxLimit int) (int, int) {
	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultLimit)
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
