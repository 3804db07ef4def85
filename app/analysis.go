// Drawing analysis. The summary counts scaffold elements by type so the
// frontend can show a bill-of-materials style breakdown without loading the
// full design.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/kkk9131/Scaff-Saas/app/models"
)

// AnalysisSummary is the stored result of a drawing analysis job.
type AnalysisSummary struct {
	Elements int            `json:"elements"`
	ByType   map[string]int `json:"by_type"`
	Layers   int            `json:"layers"`
}

type designDoc struct {
	Elements []designElement `json:"elements"`
	Layers   []designLayer   `json:"layers"`
}

type designElement struct {
	Type string `json:"type"`
}

type designLayer struct {
	Children []designElement `json:"children"`
}

// AnalyzeDesign folds a design document into a summary. Two shapes are
// accepted: a top-level "elements" array, and the Konva stage export with
// "layers" containing "children".
func AnalyzeDesign(raw json.RawMessage) (AnalysisSummary, error) {
	var doc designDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return AnalysisSummary{}, fmt.Errorf("failed to parse design: %w", err)
	}
	if len(doc.Elements) == 0 && len(doc.Layers) == 0 {
		return AnalysisSummary{}, errors.New("design has no elements")
	}

	summary := AnalysisSummary{
		ByType: map[string]int{},
		Layers: len(doc.Layers),
	}
	count := func(el designElement) {
		summary.Elements++
		t := el.Type
		if t == "" {
			t = "unknown"
		}
		summary.ByType[t]++
	}
	for _, el := range doc.Elements {
		count(el)
	}
	for _, layer := range doc.Layers {
		for _, el := range layer.Children {
			count(el)
		}
	}
	return summary, nil
}

// ProcessAnalysisJob runs one queued job to completion. Errors that reach
// the caller are transient; terminal failures are recorded on the job row
// and return nil so the queue message is deleted.
func ProcessAnalysisJob(ctx context.Context, store *Store, msg models.JobMessage) error {
	if err := store.MarkJobRunning(ctx, msg.JobID); err != nil {
		return fmt.Errorf("failed to mark job %s running: %w", msg.JobID, err)
	}

	drawing, err := store.GetDrawingByID(ctx, msg.DrawingID)
	if err != nil {
		if errors.Is(err, ErrDrawingNotFound) {
			log.Printf("job %s references missing drawing %s, failing", msg.JobID, msg.DrawingID)
			return store.FailJob(ctx, msg.JobID)
		}
		return fmt.Errorf("failed to load drawing %s: %w", msg.DrawingID, err)
	}

	summary, err := AnalyzeDesign(drawing.DesignJSON)
	if err != nil {
		log.Printf("job %s analysis failed: %v", msg.JobID, err)
		return store.FailJob(ctx, msg.JobID)
	}

	result, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode result for job %s: %w", msg.JobID, err)
	}
	if err := store.CompleteJob(ctx, msg.JobID, result); err != nil {
		return fmt.Errorf("failed to complete job %s: %w", msg.JobID, err)
	}
	log.Printf("job %s completed, %d elements", msg.JobID, summary.Elements)
	return nil
}
