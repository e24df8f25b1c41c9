package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"slaveloan-backend/internal/slavetype"
)

// GetMachineClasses handles GET /api/machine/classes: the mapping of each
// loanable slave type to the hostname globs it covers, e.g.
//
//	{"b-2008-ix": ["b-2008-ix-*", "b-2008-sm-*", "w64-ix-*"]}
func (h *Handler) GetMachineClasses(c *gin.Context) {
	c.JSON(http.StatusOK, slavetype.Patterns())
}
