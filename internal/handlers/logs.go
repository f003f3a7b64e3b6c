package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"coopstore/internal/models"
)

type LogStore interface {
	ListLogs(ctx context.Context, action string, page, limit int64) ([]models.Log, int64, error)
}

func GetLogs(st LogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/logs"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		action := strings.ToLower(strings.TrimSpace(c.Query("action")))
		switch models.LogAction(action) {
		case "", models.ActionCreate, models.ActionUpdate, models.ActionDelete, models.ActionArchive, models.ActionRestore:
		default:
			respondWithError(c, http.StatusBadRequest, route, "invalid action")
			return
		}

		entries, total, err := st.ListLogs(c.Request.Context(), action, page, limit)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		respondPage(c, entries, page, limit, total)
	}
}
