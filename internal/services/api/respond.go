package api

import (
	"errors"
	"net/http"

	pg "allowly/internal/repository/postgres"

	"github.com/gin-gonic/gin"
)

type errorBody struct {
	Error string `json:"error"`
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorBody{Error: msg})
}

// failFrom maps repository sentinels onto HTTP statuses.
func failFrom(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pg.ErrNotFound):
		fail(c, http.StatusNotFound, "not found")
	case errors.Is(err, pg.ErrConflict):
		fail(c, http.StatusConflict, "conflict")
	default:
		fail(c, http.StatusInternalServerError, "internal error")
	}
}
