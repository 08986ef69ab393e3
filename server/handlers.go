package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/syssam/tabula"
	"github.com/syssam/tabula/querylanguage"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

func (s *Server) list(c *gin.Context) {
	repo, err := s.manager.Repository(c.Param("entity"))
	if err != nil {
		s.fail(c, err)
		return
	}
	q, err := parseQuery(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	rows, err := repo.FindMany(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	total, err := repo.Count(c.Request.Context(), q.Filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":   rows,
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
	})
}

func (s *Server) get(c *gin.Context) {
	repo, err := s.manager.Repository(c.Param("entity"))
	if err != nil {
		s.fail(c, err)
		return
	}
	row, err := repo.FindID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (s *Server) create(c *gin.Context) {
	mut, err := s.manager.Mutator(c.Param("entity"))
	if err != nil {
		s.fail(c, err)
		return
	}
	var data tabula.EntityData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	row, err := mut.InsertOne(c.Request.Context(), data)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

func (s *Server) update(c *gin.Context) {
	mut, err := s.manager.Mutator(c.Param("entity"))
	if err != nil {
		s.fail(c, err)
		return
	}
	var data tabula.EntityData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	row, err := mut.UpdateOne(c.Request.Context(), c.Param("id"), data)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (s *Server) delete(c *gin.Context) {
	mut, err := s.manager.Mutator(c.Param("entity"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := mut.DeleteOne(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// bulkBody is the request body of the filter-based write endpoints.
type bulkBody struct {
	Data   tabula.EntityData    `json:"data"`
	Filter querylanguage.Filter `json:"filter"`
}

func (s *Server) updateWhere(c *gin.Context) {
	mut, err := s.manager.Mutator(c.Param("entity"))
	if err != nil {
		s.fail(c, err)
		return
	}
	var body bulkBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	n, err := mut.UpdateWhere(c.Request.Context(), body.Data, body.Filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (s *Server) deleteWhere(c *gin.Context) {
	mut, err := s.manager.Mutator(c.Param("entity"))
	if err != nil {
		s.fail(c, err)
		return
	}
	var body bulkBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	n, err := mut.DeleteWhere(c.Request.Context(), body.Filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (s *Server) listMeta(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"entities": s.manager.Entities()})
}

func (s *Server) entityMeta(c *gin.Context) {
	e, err := s.manager.Entity(c.Param("entity"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// parseQuery reads the listing parameters: _limit (capped), _offset,
// _sort ("-" prefix for descending), _fields, with, and the JSON-encoded
// filter.
func parseQuery(c *gin.Context) (tabula.Query, error) {
	q := tabula.Query{Limit: defaultLimit}
	if raw := c.Query("_limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, tabula.NewInvalidSearchParamsError(c.Param("entity"), "_limit")
		}
		q.Limit = n
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if raw := c.Query("_offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, tabula.NewInvalidSearchParamsError(c.Param("entity"), "_offset")
		}
		q.Offset = n
	}
	if raw := c.Query("_sort"); raw != "" {
		q.Sort = splitList(raw)
	}
	if raw := c.Query("_fields"); raw != "" {
		q.Fields = splitList(raw)
	}
	if raw := c.Query("with"); raw != "" {
		q.With = splitList(raw)
	}
	if raw := c.Query("filter"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &q.Filter); err != nil {
			return q, tabula.NewInvalidSearchParamsError(c.Param("entity"), "filter")
		}
	}
	return q, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// fail maps domain errors to HTTP statuses and renders the error body.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case tabula.IsNotFound(err) || tabula.IsEntityNotDefined(err):
		status = http.StatusNotFound
	case tabula.IsValidationError(err) || tabula.IsInvalidSearchParams(err) || tabula.IsConfigurationError(err):
		status = http.StatusBadRequest
	case tabula.IsConstraintError(err):
		status = http.StatusConflict
	case tabula.IsPrivacyError(err):
		status = http.StatusForbidden
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": fmt.Sprint(err)})
}
