package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/eduassist/internal/blob"
	"github.com/abhisek/eduassist/internal/embedding"
	"github.com/abhisek/eduassist/internal/llm"
	"github.com/abhisek/eduassist/internal/materials"
	"github.com/abhisek/eduassist/internal/progress"
	"github.com/abhisek/eduassist/internal/rag"
	"github.com/abhisek/eduassist/internal/store"
)

const uploadMessage = "File uploaded and processed successfully."

func (s *Server) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		if tooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}
		badRequest(c, "missing file")
		return
	}
	f, err := header.Open()
	if err != nil {
		badRequest(c, "unreadable file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		badRequest(c, "unreadable file")
		return
	}

	res, err := s.deps.Materials.Upload(c.Request.Context(), header.Filename, data)
	switch {
	case err == nil:
	case errors.Is(err, materials.ErrInvalidFilename), errors.Is(err, blob.ErrInvalidName):
		badRequest(c, err.Error())
		return
	case errors.Is(err, materials.ErrNotText), errors.Is(err, rag.ErrEmptyDocument):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case errors.Is(err, embedding.ErrUpstream):
		slog.Warn("upload not indexed", "filename", header.Filename, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "embedding provider error"})
		return
	default:
		slog.Error("upload failed", "filename", header.Filename, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process upload"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     uploadMessage,
		"filename":    res.Filename,
		"document_id": res.DocumentID,
	})
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

func (s *Server) ask(c *gin.Context) {
	question := strings.TrimSpace(c.PostForm("question"))
	if question == "" {
		badRequest(c, "question is required")
		return
	}
	userID := strings.TrimSpace(c.PostForm("user_id"))
	documentID := strings.TrimSpace(c.PostForm("document_id"))

	answer, err := s.deps.Answerer.Answer(c.Request.Context(), documentID, question)
	if err != nil {
		status, msg := answerError(err)
		slog.Error("answer failed", "user_id", userID, "status", status, "err", err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	if userID != "" {
		s.deps.Interactions.LogInteraction(c.Request.Context(), userID, question, answer)
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

func answerError(err error) (int, string) {
	switch {
	case errors.Is(err, rag.ErrEmptyQuestion):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, rag.ErrNoProvider), errors.Is(err, llm.ErrNotConfigured):
		return http.StatusServiceUnavailable, "answering is not configured"
	case llm.IsUpstream(err):
		return http.StatusBadGateway, "model provider error"
	case errors.Is(err, embedding.ErrUpstream):
		return http.StatusBadGateway, "embedding provider error"
	default:
		return http.StatusInternalServerError, "failed to answer question"
	}
}

func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, "limit must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func (s *Server) logs(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	logs, err := s.deps.Interactions.Recent(c.Request.Context(), c.Param("user_id"), limit)
	if err != nil {
		slog.Error("list logs failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

type progressRequest struct {
	UserID string `form:"user_id" json:"user_id" binding:"required"`
	Topic  string `form:"topic" json:"topic" binding:"required"`
	Score  *int   `form:"score" json:"score" binding:"required"`
}

func (s *Server) recordProgress(c *gin.Context) {
	var req progressRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "user_id, topic and integer score are required")
		return
	}

	out := s.deps.Progress.RecordScore(c.Request.Context(), req.UserID, req.Topic, *req.Score)
	if errors.Is(out.Err, progress.ErrInvalidInput) {
		badRequest(c, out.Err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": out.OK(), "progress": out.Progress})
}

func (s *Server) listProgress(c *gin.Context) {
	list, err := s.deps.Progress.ForUser(c.Request.Context(), c.Param("user_id"))
	if errors.Is(err, progress.ErrInvalidInput) {
		badRequest(c, err.Error())
		return
	}
	if err != nil {
		slog.Error("list progress failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list progress"})
		return
	}
	if list == nil {
		list = []store.Progress{}
	}
	c.JSON(http.StatusOK, gin.H{"progress": list})
}

func (s *Server) listMaterials(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	ms, err := s.deps.Materials.List(c.Request.Context(), limit)
	if err != nil {
		slog.Error("list materials failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list materials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"materials": ms})
}
