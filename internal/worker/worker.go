// Package worker consumes the generate_session queue and drives the
// pipeline.Driver end to end for one project, then uploads and records the
// resulting video. Grounded on the teacher's own worker.go: same
// queue-polling loop, same per-operation semaphore-bounded upload helper,
// same db status bookkeeping — narrowed from three chained job types
// (generate_plan/process_clip/render_final) to one, since pipeline.Driver's
// own errgroup fan-out now does the per-segment concurrency the teacher
// split across those three queues.
package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/faceless-engine/synthesizer/internal/db"
	"github.com/faceless-engine/synthesizer/internal/models"
	"github.com/faceless-engine/synthesizer/internal/pipeline"
	"github.com/faceless-engine/synthesizer/internal/queue"
	"github.com/faceless-engine/synthesizer/internal/storage"
	"github.com/google/uuid"
)

type Worker struct {
	db      *db.DB
	queue   *queue.Queue
	storage *storage.Storage
	driver  *pipeline.Driver

	backgroundMusicPath string
	outputDir           string

	// uploadSem bounds concurrent Supabase Storage uploads across all
	// in-flight sessions, mirroring the teacher's own upload semaphore.
	uploadSem chan struct{}
}

func New(database *db.DB, q *queue.Queue, stor *storage.Storage, driver *pipeline.Driver, backgroundMusicPath, outputDir string) *Worker {
	return &Worker{
		db:                  database,
		queue:               q,
		storage:             stor,
		driver:              driver,
		backgroundMusicPath: backgroundMusicPath,
		outputDir:           outputDir,
		uploadSem:           make(chan struct{}, 3),
	}
}

// withSemaphore wraps a function call with a semaphore to bound concurrency.
func (w *Worker) withSemaphore(ctx context.Context, sem chan struct{}, label string, fn func() error) error {
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%s cancelled while waiting for slot: %w", label, ctx.Err())
	}
	defer func() { <-sem }()
	return fn()
}

func (w *Worker) uploadWithLimit(ctx context.Context, label string, fn func() error) error {
	return w.withSemaphore(ctx, w.uploadSem, "Upload:"+label, fn)
}

// Start begins processing jobs from the generate_session queue.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Printf("Worker started with concurrency: %d", concurrency)

	for i := 0; i < concurrency; i++ {
		go w.processQueue(ctx, queue.QueueGenerateSession, w.handleGenerateSession)
	}

	<-ctx.Done()
	log.Println("Worker shutting down...")
}

func (w *Worker) processQueue(ctx context.Context, queueName string, handler func(context.Context, *queue.Job) error) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := w.queue.Dequeue(ctx, queueName, 5*time.Second)
			if err != nil {
				log.Printf("Error dequeuing from %s: %v", queueName, err)
				continue
			}
			if job == nil {
				continue
			}

			log.Printf("Processing job %s (type: %s, project: %s)", job.ID, job.Type, job.ProjectID)

			if err := w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusRunning); err != nil {
				log.Printf("Failed to update job status: %v", err)
			}

			if err := handler(ctx, job); err != nil {
				log.Printf("Job %s failed: %v", job.ID, err)
				w.db.UpdateJobError(ctx, job.ID, err.Error())
			} else {
				log.Printf("Job %s completed successfully", job.ID)
				w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusSucceeded)
			}
		}
	}
}

// handleGenerateSession runs the full mission-to-video pipeline for one
// project and uploads the result. Replaces the teacher's
// handleGeneratePlan/handleProcessClip/handleRenderFinal trio: the
// pipeline.Driver already does mission parsing, per-segment generation,
// duration gating, sync planning, and final composition in one call.
func (w *Worker) handleGenerateSession(ctx context.Context, job *queue.Job) error {
	project, err := w.db.GetProject(ctx, job.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to get project: %w", err)
	}

	if err := w.db.UpdateProjectStatus(ctx, job.ProjectID, models.ProjectStatusGenerating); err != nil {
		return fmt.Errorf("failed to update project status: %w", err)
	}

	cfg := pipeline.Config{
		TargetDurationS:     float64(project.TargetDurationSeconds),
		BackgroundMusicPath: w.backgroundMusicPath,
		OutputDir:           w.outputDir,
		UseVideoGeneration:  true,
	}
	if project.AspectRatio != nil {
		cfg.AspectRatio = *project.AspectRatio
	}
	if project.VoiceID != nil {
		cfg.VoiceID = *project.VoiceID
	}
	if project.Language != nil {
		cfg.Language = *project.Language
	}
	if project.Tone != nil {
		cfg.Style = *project.Tone
	}
	if project.CTA != nil {
		cfg.FlagContext = *project.CTA
	}

	result, err := w.driver.RunPipeline(ctx, project.Topic, cfg)
	if err != nil {
		w.db.UpdateProjectError(ctx, job.ProjectID, "pipeline_failed", err.Error())
		return fmt.Errorf("pipeline run failed: %w", err)
	}
	for _, warning := range result.Warnings {
		log.Printf("Project %s session %s: %s", job.ProjectID, result.SessionID, warning)
	}

	if err := w.db.UpdateProjectStatus(ctx, job.ProjectID, models.ProjectStatusRendering); err != nil {
		return fmt.Errorf("failed to update project status: %w", err)
	}

	if err := w.persistSegments(ctx, job.ProjectID, result.Segments); err != nil {
		log.Printf("Project %s: failed to persist segment clips: %v", job.ProjectID, err)
	}

	finalAsset := &models.Asset{
		ID:            uuid.New(),
		ProjectID:     job.ProjectID,
		Type:          models.AssetTypeFinalVideo,
		StorageBucket: w.storage.Bucket,
		StoragePath:   w.storage.GenerateStoragePath(job.ProjectID, "final.mp4"),
		ContentType:   strPtr("video/mp4"),
	}

	if err := w.uploadWithLimit(ctx, "final_video", func() error {
		return w.storage.UploadFile(ctx, finalAsset.StoragePath, result.FinalVideoPath, "video/mp4")
	}); err != nil {
		w.db.UpdateProjectError(ctx, job.ProjectID, "upload_failed", err.Error())
		return fmt.Errorf("failed to upload final video: %w", err)
	}

	if err := w.db.CreateAsset(ctx, finalAsset); err != nil {
		return fmt.Errorf("failed to save final video asset: %w", err)
	}

	if err := w.db.SetProjectFinalVideo(ctx, job.ProjectID, finalAsset.ID); err != nil {
		return fmt.Errorf("failed to set final video: %w", err)
	}

	if result.Degraded {
		log.Printf("Project %s finished degraded (audio/sync gates did not fully converge)", job.ProjectID)
	}

	return w.db.UpdateProjectStatus(ctx, job.ProjectID, models.ProjectStatusCompleted)
}

// persistSegments uploads each segment's generated assets and records a clip
// row per segment, giving the debug/listing endpoints (GetProjectClips,
// GetClip, thumbnails) something to read even though generation itself now
// runs as one pipeline call instead of per-clip queue jobs.
func (w *Worker) persistSegments(ctx context.Context, projectID uuid.UUID, segments []pipeline.SegmentResult) error {
	for _, seg := range segments {
		clip := &models.Clip{
			ID:          uuid.New(),
			ProjectID:   projectID,
			ClipIndex:   seg.Index,
			Script:      seg.Text,
			ImagePrompt: seg.Text,
			Status:      models.ClipStatusPending,
		}
		if err := w.db.CreateClip(ctx, clip); err != nil {
			return fmt.Errorf("segment %d: create clip: %w", seg.Index, err)
		}

		if seg.AudioPath != "" {
			assetID, err := w.uploadSegmentAsset(ctx, projectID, seg.Index, "audio.mp3", seg.AudioPath, "audio/mpeg", models.AssetTypeAudio, &clip.ID)
			if err != nil {
				log.Printf("segment %d: audio upload failed: %v", seg.Index, err)
			} else if err := w.db.UpdateClipAudio(ctx, clip.ID, assetID, 0); err != nil {
				log.Printf("segment %d: failed to record audio asset: %v", seg.Index, err)
			}
		}

		if len(seg.ImagePaths) > 0 {
			assetID, err := w.uploadSegmentAsset(ctx, projectID, seg.Index, "image.png", seg.ImagePaths[0], "image/png", models.AssetTypeImage, &clip.ID)
			if err != nil {
				log.Printf("segment %d: image upload failed: %v", seg.Index, err)
			} else if err := w.db.UpdateClipImage(ctx, clip.ID, assetID); err != nil {
				log.Printf("segment %d: failed to record image asset: %v", seg.Index, err)
			}
		}

		if seg.VideoPath != "" {
			assetID, err := w.uploadSegmentAsset(ctx, projectID, seg.Index, "clip.mp4", seg.VideoPath, "video/mp4", models.AssetTypeClipVideo, &clip.ID)
			if err != nil {
				log.Printf("segment %d: clip video upload failed: %v", seg.Index, err)
			} else if err := w.db.UpdateClipVideo(ctx, clip.ID, assetID); err != nil {
				log.Printf("segment %d: failed to record clip video asset: %v", seg.Index, err)
			}
		} else if err := w.db.UpdateClipStatus(ctx, clip.ID, models.ClipStatusRendered); err != nil {
			log.Printf("segment %d: failed to mark clip rendered: %v", seg.Index, err)
		}
	}
	return nil
}

// uploadSegmentAsset uploads one local segment file to storage and records
// its Asset row, returning the new asset's ID.
func (w *Worker) uploadSegmentAsset(ctx context.Context, projectID uuid.UUID, segmentIndex int, filename, localPath, contentType string, assetType models.AssetType, clipID *uuid.UUID) (uuid.UUID, error) {
	storagePath := w.storage.GenerateStoragePath(projectID, fmt.Sprintf("segments/%d/%s", segmentIndex, filename))

	if err := w.uploadWithLimit(ctx, filename, func() error {
		return w.storage.UploadFile(ctx, storagePath, localPath, contentType)
	}); err != nil {
		return uuid.Nil, fmt.Errorf("upload %s: %w", filename, err)
	}

	asset := &models.Asset{
		ID:            uuid.New(),
		ProjectID:     projectID,
		ClipID:        clipID,
		Type:          assetType,
		StorageBucket: w.storage.Bucket,
		StoragePath:   storagePath,
		ContentType:   strPtr(contentType),
	}
	if err := w.db.CreateAsset(ctx, asset); err != nil {
		return uuid.Nil, fmt.Errorf("record asset: %w", err)
	}
	return asset.ID, nil
}

func strPtr(s string) *string {
	return &s
}
