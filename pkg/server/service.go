// Package server exposes the research service over HTTP: async job
// management, synchronous SSE report generation, evidence chat, and the MCP
// tool surface.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mlange/insight/pkg/archive"
	"github.com/mlange/insight/pkg/clients"
	"github.com/mlange/insight/pkg/config"
	"github.com/mlange/insight/pkg/database"
	"github.com/mlange/insight/pkg/embeddings"
	"github.com/mlange/insight/pkg/profiles"
	"github.com/mlange/insight/pkg/reports"
	"github.com/mlange/insight/pkg/research"
	"github.com/mlange/insight/pkg/splitter"
)

type Service struct {
	DB          *database.PostgresDB
	Cfg         *config.Config
	Searcher    research.Searcher
	Reasoner    research.Reasoner
	Synthesizer *clients.Reasoner
	Embedder    *embeddings.GoogleEmbedder
	Splitter    *splitter.TextSplitter
}

func NewService(db *database.PostgresDB, cfg *config.Config, searcher research.Searcher, reasoner research.Reasoner, synthesizer *clients.Reasoner, embedder *embeddings.GoogleEmbedder, sp *splitter.TextSplitter) *Service {
	return &Service{
		DB:          db,
		Cfg:         cfg,
		Searcher:    searcher,
		Reasoner:    reasoner,
		Synthesizer: synthesizer,
		Embedder:    embedder,
		Splitter:    sp,
	}
}

type Job struct {
	ID        uuid.UUID       `json:"id"`
	Query     string          `json:"query"`
	Industry  string          `json:"industry"`
	Status    string          `json:"status"`
	Report    *string         `json:"report,omitempty"`
	State     json.RawMessage `json:"state,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Config    json.RawMessage `json:"config"`
}

type CreateJobRequest struct {
	Query         string `json:"query" binding:"required"`
	Industry      string `json:"industry"`
	MaxIterations int    `json:"max_iterations"`
}

// researchConfig builds a per-run engine config from the service defaults,
// with the request's iteration budget applied when given.
func (s *Service) researchConfig(maxIterations int) research.Config {
	cfg := research.Config{
		MaxIterations: s.Cfg.MaxIterations,
		SearchCount:   s.Cfg.SearchCount,
		SearchPacing:  s.Cfg.SearchPacing,
	}
	if maxIterations > 0 {
		cfg.MaxIterations = maxIterations
	}
	return cfg
}

// CreateJob persists a pending job and starts a background worker for it.
func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error) {
	if req.Industry == "" {
		req.Industry = "deepResearch"
	}
	if _, ok := profiles.Get(req.Industry); !ok {
		return nil, fmt.Errorf("unknown industry %q, valid values: %v", req.Industry, profiles.IDs())
	}

	runCfg := s.researchConfig(req.MaxIterations)
	configJSON, _ := json.Marshal(map[string]any{
		"max_iterations": runCfg.MaxIterations,
		"search_count":   runCfg.SearchCount,
		"collection":     s.Cfg.CollectionName,
	})

	jobID := uuid.New()
	query := `
		INSERT INTO research_jobs (id, query, industry, status, config)
		VALUES ($1, $2, $3, 'pending', $4)
		RETURNING id, query, industry, status, created_at, updated_at
	`

	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, query, jobID, req.Query, req.Industry, configJSON).Scan(
		&job.ID, &job.Query, &job.Industry, &job.Status, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	go s.runWorker(job.ID, req.Query, req.Industry, runCfg)

	return job, nil
}

func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	query := `
		SELECT id, query, industry, status, report, state, created_at, updated_at, config
		FROM research_jobs
		WHERE id = $1
	`
	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.Query, &job.Industry, &job.Status, &job.Report, &job.State,
		&job.CreatedAt, &job.UpdatedAt, &job.Config,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *Service) ListJobs(ctx context.Context) ([]Job, error) {
	query := `
		SELECT id, query, industry, status, report, state, created_at, updated_at, config
		FROM research_jobs
		ORDER BY created_at DESC
		LIMIT 50
	`
	rows, err := s.DB.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var job Job
		if err := rows.Scan(&job.ID, &job.Query, &job.Industry, &job.Status, &job.Report, &job.State,
			&job.CreatedAt, &job.UpdatedAt, &job.Config); err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (s *Service) GetJobLogs(ctx context.Context, jobID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM research_logs
		WHERE job_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

// NewEngine wires a research engine for one run, logging through logger.
func (s *Service) NewEngine(profile *profiles.Profile, runCfg research.Config, logger *slog.Logger) (*research.Engine, error) {
	return research.NewEngine(runCfg, profile, s.Searcher, s.Reasoner, logger)
}

func (s *Service) runWorker(jobID uuid.UUID, query, industry string, runCfg research.Config) {
	ctx := context.Background()

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_jobs SET status = 'running', updated_at = NOW() WHERE id = $1", jobID)

	dbLogger := slog.New(NewDBLogHandler(s.DB, jobID))

	profile, ok := profiles.Get(industry)
	if !ok {
		s.failJob(ctx, jobID, fmt.Sprintf("Unknown industry: %s", industry))
		return
	}

	engine, err := s.NewEngine(profile, runCfg, dbLogger)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("Failed to init engine: %v", err))
		return
	}

	engine.OnUpdate = func(state research.State) {
		stateJSON, err := json.Marshal(state)
		if err != nil {
			dbLogger.Error("failed to marshal run state", "error", err)
			return
		}
		_, err = s.DB.Pool.Exec(context.Background(),
			"UPDATE research_jobs SET state = $2, updated_at = NOW() WHERE id = $1",
			jobID, stateJSON)
		if err != nil {
			dbLogger.Error("failed to save run state", "error", err)
		}
	}

	outcome, err := engine.Run(ctx, query)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("Research failed: %v", err))
		return
	}

	report, err := s.Synthesizer.GenerateText(ctx, profile.SynthesizerSystemPrompt, outcome.SynthesisPrompt)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("Synthesis failed: %v", err))
		return
	}

	_, err = s.DB.Pool.Exec(ctx,
		"UPDATE research_jobs SET status = 'completed', report = $2, updated_at = NOW() WHERE id = $1",
		jobID, report)
	if err != nil {
		dbLogger.Error("failed to save final report", "error", err)
	}

	if path, err := reports.Save(s.Cfg.ReportsDir, profile, query, report); err != nil {
		dbLogger.Error("failed to write report file", "error", err)
	} else {
		dbLogger.Info("report file written", "path", path)
	}

	s.archiveEvidence(ctx, outcome.Evidence, dbLogger)
}

// archiveEvidence indexes a finished run's evidence into pgvector so the chat
// tools can query it later. Archiving is best effort; a completed job stays
// completed even when indexing fails.
func (s *Service) archiveEvidence(ctx context.Context, records []research.EvidenceRecord, logger *slog.Logger) {
	if s.Embedder == nil || s.Splitter == nil {
		return
	}

	store, err := archive.New(s.DB.Pool, s.Cfg.CollectionName)
	if err != nil {
		logger.Error("failed to open evidence archive", "error", err)
		return
	}
	if err := archive.IndexEvidence(ctx, store, s.Embedder, s.Splitter, records, logger); err != nil {
		logger.Error("failed to archive evidence", "error", err)
	}
}

func (s *Service) failJob(ctx context.Context, jobID uuid.UUID, reason string) {
	dbLogger := slog.New(NewDBLogHandler(s.DB, jobID))
	dbLogger.Error(reason)

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_jobs SET status = 'failed', updated_at = NOW() WHERE id = $1", jobID)
}
