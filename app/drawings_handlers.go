package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/kkk9131/Scaff-Saas/app/models"
	"github.com/kkk9131/Scaff-Saas/auth"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"
)

type saveDrawingRequest struct {
	ProjectID      string          `json:"project_id" binding:"required"`
	DesignJSON     json.RawMessage `json:"design_json" binding:"required"`
	BuildingDataID string          `json:"building_data_id"`
}

// GetLatestDrawing returns the newest saved design version for a project.
func (s *Server) GetLatestDrawing(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	drawing, err := s.store.GetLatestDrawing(ctx, c.Param("id"), claims.Subject)
	if err != nil {
		if errors.Is(err, ErrDrawingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no drawing found for project"})
			return
		}
		log.Printf("drawing get failed user=%s project=%s: %v", claims.Subject, c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load drawing"})
		return
	}
	c.JSON(http.StatusOK, drawing)
}

// SaveDrawing appends a new design version to a project the caller owns.
func (s *Server) SaveDrawing(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	var req saveDrawingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project_id and design_json are required"})
		return
	}
	if !json.Valid(req.DesignJSON) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "design_json must be valid JSON"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	drawing, err := s.store.SaveDrawing(ctx, req.ProjectID, claims.Subject, req.DesignJSON, req.BuildingDataID)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		log.Printf("drawing save failed user=%s project=%s: %v", claims.Subject, req.ProjectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save drawing"})
		return
	}
	c.JSON(http.StatusCreated, drawing)
}

// AnalyzeDrawing queues asynchronous analysis of a project's latest drawing.
// The feature is plan gated.
func (s *Server) AnalyzeDrawing(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 25*time.Second)
	defer cancel()

	enabled, err := s.store.HasOCRAnalysis(ctx, claims.Subject)
	if err != nil {
		log.Printf("analysis feature check failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue analysis"})
		return
	}
	if !enabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "current plan does not include OCR analysis"})
		return
	}

	drawing, err := s.store.GetLatestDrawing(ctx, c.Param("id"), claims.Subject)
	if err != nil {
		if errors.Is(err, ErrDrawingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no drawing found for project"})
			return
		}
		log.Printf("analysis drawing lookup failed user=%s project=%s: %v", claims.Subject, c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue analysis"})
		return
	}

	jobID, err := s.store.CreateJob(ctx, drawing.ProjectID, drawing.ID)
	if err != nil {
		log.Printf("analysis job create failed user=%s project=%s: %v", claims.Subject, drawing.ProjectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue analysis"})
		return
	}

	if err := s.enqueueJob(ctx, models.JobMessage{
		JobID:     jobID,
		ProjectID: drawing.ProjectID,
		DrawingID: drawing.ID,
	}); err != nil {
		log.Printf("analysis enqueue failed job=%s: %v", jobID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue analysis"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": jobID,
		"status": models.JobQueued,
	})
}

// enqueueJob sends a job message to SQS. With no queue configured the job
// row still exists and a local worker can poll the table directly.
func (s *Server) enqueueJob(ctx context.Context, msg models.JobMessage) error {
	if s.queue == nil || s.cfg.QueueURL == "" {
		log.Printf("queue not configured, job %s recorded without enqueue", msg.JobID)
		return nil
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = s.queue.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.cfg.QueueURL),
		MessageBody: aws.String(string(body)),
	})
	return err
}

// GetJobStatus reports the state of an analysis job the caller owns.
func (s *Server) GetJobStatus(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	job, err := s.store.FindJobStatus(ctx, c.Param("jobid"), claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		log.Printf("job status lookup failed user=%s job=%s: %v", claims.Subject, c.Param("jobid"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
		return
	}
	c.JSON(http.StatusOK, job)
}
