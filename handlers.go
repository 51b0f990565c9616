package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/cmdb_cleanser/config"
	"github.com/mmdatafocus/cmdb_cleanser/models"
	"github.com/mmdatafocus/cmdb_cleanser/session"
	"github.com/mmdatafocus/cmdb_cleanser/subtypes"
	"github.com/mmdatafocus/cmdb_cleanser/utils"
	"github.com/sirupsen/logrus"
)

type configureRequest struct {
	Columns []models.ColumnConfig `json:"columns" binding:"required,min=1,dive"`
}

type scanRequest struct {
	Action  models.ActionType `json:"action" binding:"required"`
	ListAll bool              `json:"listAll"`
}

type cellRequest struct {
	Column    string `json:"column" binding:"required"`
	RowNumber int    `json:"rowNumber" binding:"required,min=2"`
	Value     string `json:"value"`
}

type subtypeView struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Family      subtypes.Family `json:"family"`
	Description string          `json:"description"`
}

// respondError maps input errors to 400, unknown columns to 404 and everything else to 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, utils.ErrColumnNotFound):
		status = http.StatusNotFound
	case errors.Is(err, utils.ErrNoWorkbook),
		errors.Is(err, utils.ErrInvalidInput),
		errors.Is(err, utils.ErrUnsupportedAction),
		errors.Is(err, utils.ErrUnsupportedFile),
		errors.Is(err, utils.ErrRowOutOfRange):
		status = http.StatusBadRequest
	default:
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":  "invalid request",
		"fields": utils.ProcessValidationErrors(err),
	})
}

func logInfo(c *gin.Context, msg string, fields logrus.Fields) {
	config.WithContext(c.Request.Context()).WithFields(fields).Info(msg)
}

func (s *server) columnsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := s.svc.Workbook(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func (s *server) configureHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req configureRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		info, err := s.svc.Configure(c.Request.Context(), req.Columns)
		if err != nil {
			respondError(c, err)
			return
		}
		logInfo(c, "columns configured", logrus.Fields{"workbook": info.ID, "columns": len(req.Columns)})
		c.JSON(http.StatusOK, info)
	}
}

func (s *server) subtypesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		registry := s.svc.Registry()
		var rules []*subtypes.Rule
		if raw := c.Query("type"); raw != "" {
			t, err := models.ParseColumnType(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid column type %q", raw)})
				return
			}
			rules = registry.ForType(t)
		} else {
			for _, id := range registry.IDs() {
				rule, _ := registry.Lookup(id)
				rules = append(rules, rule)
			}
		}
		views := make([]subtypeView, 0, len(rules))
		for _, rule := range rules {
			views = append(views, subtypeView{ID: rule.ID, Name: rule.Name, Family: rule.Family, Description: rule.Describe()})
		}
		c.JSON(http.StatusOK, views)
	}
}

func (s *server) actionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actions, err := s.svc.Actions(c.Request.Context(), c.Param("name"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, actions)
	}
}

func (s *server) scanHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req scanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		res, err := s.svc.Scan(c.Request.Context(), c.Param("name"), req.Action, req.ListAll)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func (s *server) decideHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req session.DecisionInput
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		res, err := s.svc.Decide(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		logInfo(c, "decision applied", logrus.Fields{"column": req.Column, "row": req.RowNumber, "kind": req.Kind})
		c.JSON(http.StatusOK, res)
	}
}

func (s *server) decisionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		decisions, err := s.svc.Decisions(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		if decisions == nil {
			decisions = []*models.Decision{}
		}
		c.JSON(http.StatusOK, decisions)
	}
}

func (s *server) updateCellHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cellRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		res, err := s.svc.UpdateCell(c.Request.Context(), req.Column, req.RowNumber, req.Value)
		if err != nil {
			respondError(c, err)
			return
		}
		logInfo(c, "cell updated", logrus.Fields{"column": req.Column, "row": req.RowNumber})
		c.JSON(http.StatusOK, res)
	}
}

func (s *server) resetRowHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		row, err := strconv.Atoi(c.Param("row"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "row must be a number"})
			return
		}
		restored, err := s.svc.ResetRow(c.Request.Context(), row)
		if err != nil {
			respondError(c, err)
			return
		}
		logInfo(c, "row reset", logrus.Fields{"row": row, "restored": restored})
		c.JSON(http.StatusOK, gin.H{"rowNumber": row, "restored": restored})
	}
}

func (s *server) exportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := s.svc.Export(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		logInfo(c, "workbook exported", logrus.Fields{
			"file":          res.FileName,
			"rows_exported": res.Stats.RowsExported,
			"rows_deleted":  res.Stats.RowsDeleted,
		})
		c.Header("X-Rows-Exported", strconv.Itoa(res.Stats.RowsExported))
		c.Header("X-Rows-Deleted", strconv.Itoa(res.Stats.RowsDeleted))
		c.Header("X-Edits-Applied", strconv.Itoa(res.Stats.EditsApplied))
		c.Header("Content-Type", utils.XLSXContentType)
		c.FileAttachment(res.Path, res.FileName)
	}
}
