package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"research-repository-api/services"
	"research-repository-api/utils"

	"github.com/gin-gonic/gin"
)

// respondError maps workflow errors to status codes. Anything unrecognised
// is logged and reported as a generic 500.
func respondError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	var forbiddenErr *services.ForbiddenError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   validationErr.Error(),
			"details": validationErr.Fields,
		})
	case errors.As(err, &forbiddenErr):
		errorJSON(c, http.StatusForbidden, forbiddenErr.Error())
	case errors.Is(err, services.ErrUnauthenticated),
		errors.Is(err, services.ErrInvalidCredentials):
		errorJSON(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrNotFound):
		errorJSON(c, http.StatusNotFound, notFoundMessage(c))
	case errors.Is(err, services.ErrFileMissing):
		errorJSON(c, http.StatusNotFound, "File not found on server disk")
	case errors.Is(err, services.ErrInvalidStatus):
		errorJSON(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrEmailTaken):
		errorJSON(c, http.StatusConflict, err.Error())
	default:
		utils.LoggerFromContext(c.Request.Context()).Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
}

// notFoundMessage keeps download misses vague so unapproved papers cannot be
// told apart from missing ones.
func notFoundMessage(c *gin.Context) string {
	if strings.HasSuffix(c.FullPath(), "/download") {
		return "File not found or not yet approved"
	}
	return "Paper not found"
}

func errorJSON(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

// paperID parses the :id path parameter. Malformed ids are reported as
// not found, the same as ids that do not exist.
func paperID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, services.ErrNotFound
	}
	return uint(id), nil
}
