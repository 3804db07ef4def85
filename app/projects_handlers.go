package app

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/kkk9131/Scaff-Saas/app/models"
	"github.com/kkk9131/Scaff-Saas/auth"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

type createProjectRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	CustomerName string `json:"customer_name"`
	SiteAddress  string `json:"site_address"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
}

type updateProjectRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	Status       *string `json:"status"`
	CustomerName *string `json:"customer_name"`
	SiteAddress  *string `json:"site_address"`
	StartDate    *string `json:"start_date"`
	EndDate      *string `json:"end_date"`
}

type duplicateProjectRequest struct {
	Name string `json:"name"`
}

// CreateProject creates a project after checking the caller's plan limit.
func (s *Server) CreateProject(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	project, err := s.store.CreateProject(ctx, models.Project{
		UserID:       claims.Subject,
		Name:         req.Name,
		Description:  req.Description,
		Status:       models.ProjectDraft,
		CustomerName: req.CustomerName,
		SiteAddress:  req.SiteAddress,
		StartDate:    start,
		EndDate:      end,
	})
	if err != nil {
		var qe quotaError
		if errors.As(err, &qe) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "project limit reached",
				"limit": qe.Limit,
			})
			return
		}
		log.Printf("project create failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create project"})
		return
	}
	c.JSON(http.StatusCreated, project)
}

// ListProjects returns the caller's projects, newest activity first, with
// optional status filtering and paging.
func (s *Server) ListProjects(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	status := c.Query("status")
	if status != "" && !models.ValidProjectStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status filter"})
		return
	}
	page := intQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := intQuery(c, "page_size", 20)
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	projects, total, err := s.store.ListProjects(ctx, claims.Subject, status, page, pageSize)
	if err != nil {
		log.Printf("project list failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load projects"})
		return
	}
	if projects == nil {
		projects = []models.Project{}
	}
	c.JSON(http.StatusOK, gin.H{
		"projects":  projects,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetProject returns one of the caller's projects or 404.
func (s *Server) GetProject(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	project, err := s.store.GetProject(ctx, c.Param("id"), claims.Subject)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		log.Printf("project get failed user=%s id=%s: %v", claims.Subject, c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load project"})
		return
	}
	c.JSON(http.StatusOK, project)
}

// UpdateProject applies a partial update to one of the caller's projects.
func (s *Server) UpdateProject(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Name != nil && *req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
		return
	}
	if req.Status != nil && !models.ValidProjectStatus(*req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	ch := ProjectChanges{
		Name:         req.Name,
		Description:  req.Description,
		Status:       req.Status,
		CustomerName: req.CustomerName,
		SiteAddress:  req.SiteAddress,
	}
	if req.StartDate != nil {
		ts, err := time.Parse(dateLayout, *req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
			return
		}
		ch.StartDate = &ts
	}
	if req.EndDate != nil {
		ts, err := time.Parse(dateLayout, *req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be YYYY-MM-DD"})
			return
		}
		ch.EndDate = &ts
	}
	if ch.StartDate != nil && ch.EndDate != nil && ch.EndDate.Before(*ch.StartDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must not precede start_date"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	project, err := s.store.UpdateProject(ctx, c.Param("id"), claims.Subject, ch)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		log.Printf("project update failed user=%s id=%s: %v", claims.Subject, c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update project"})
		return
	}
	c.JSON(http.StatusOK, project)
}

// DeleteProject removes one of the caller's projects.
func (s *Server) DeleteProject(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := s.store.DeleteProject(ctx, c.Param("id"), claims.Subject); err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		log.Printf("project delete failed user=%s id=%s: %v", claims.Subject, c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete project"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "project deleted"})
}

// DuplicateProject clones a project's metadata into a fresh draft. Drawings
// are not copied; the new project starts empty.
func (s *Server) DuplicateProject(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	var req duplicateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	project, err := s.store.DuplicateProject(ctx, c.Param("id"), claims.Subject, req.Name)
	if err != nil {
		var qe quotaError
		if errors.As(err, &qe) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "project limit reached",
				"limit": qe.Limit,
			})
			return
		}
		if errors.Is(err, ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		log.Printf("project duplicate failed user=%s id=%s: %v", claims.Subject, c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to duplicate project"})
		return
	}
	c.JSON(http.StatusCreated, project)
}

func parseDateRange(startRaw, endRaw string) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if startRaw != "" {
		ts, err := time.Parse(dateLayout, startRaw)
		if err != nil {
			return nil, nil, errors.New("start_date must be YYYY-MM-DD")
		}
		start = &ts
	}
	if endRaw != "" {
		ts, err := time.Parse(dateLayout, endRaw)
		if err != nil {
			return nil, nil, errors.New("end_date must be YYYY-MM-DD")
		}
		end = &ts
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, errors.New("end_date must not precede start_date")
	}
	return start, end, nil
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
