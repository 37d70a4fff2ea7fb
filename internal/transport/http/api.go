package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"heylon/internal/store/model"

	"github.com/gin-gonic/gin"
)

// handleFullState returns the dashboard's single-call view: the decision row
// plus the latest tap/MSS/setup signals for the symbol.
func (s *Server) handleFullState(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	if symbol == "" {
		cfg := s.cfg.Current()
		symbol = strings.ToUpper(cfg.Watchlist.ActiveSymbol)
		if symbol == "" {
			symbol = "NQ"
		}
	}

	decision, err := s.decisions.GetDecision(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	recent, err := s.signals.RecentSignals(c.Request.Context(), symbol, 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var latestTap, latestMSS, latestSetup *model.Signal
	for i := range recent {
		sig := &recent[i]
		switch sig.Type {
		case model.SignalTap:
			if latestTap == nil {
				latestTap = sig
			}
		case model.SignalMSS:
			if latestMSS == nil {
				latestMSS = sig
			}
		case model.SignalSetup:
			if latestSetup == nil {
				latestSetup = sig
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":      symbol,
		"decision":    decision,
		"latestTap":   latestTap,
		"latestMss":   latestMSS,
		"latestSetup": latestSetup,
		"timestamp":   time.Now().UnixMilli(),
	})
}

func (s *Server) handleDecision(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	rec, err := s.decisions.GetDecision(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no decision state for " + symbol})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleSignals(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	limit := parseLimit(c.Query("limit"), 20)
	rows, err := s.signals.RecentSignals(c.Request.Context(), symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "signals": rows})
}

func (s *Server) handleContext(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	snap, err := s.contexts.ActiveSnapshot(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no live context snapshot for " + symbol})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleLearningLogs(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	if symbol == "ALL" {
		symbol = ""
	}
	outcome := strings.ToUpper(strings.TrimSpace(c.Query("outcome")))
	limit := parseLimit(c.Query("limit"), 50)

	rows, err := s.learning.ListLearningLogs(c.Request.Context(), symbol, outcome, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": rows})
}

// handleOutcome is the human annotation path; it only ever touches
// outcome and notes.
func (s *Server) handleOutcome(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid log id"})
		return
	}
	var req struct {
		Outcome string `json:"outcome" binding:"required"`
		Notes   string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	outcome := strings.ToUpper(req.Outcome)
	switch outcome {
	case model.OutcomeWin, model.OutcomeLoss, model.OutcomeNeutral:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "outcome must be WIN, LOSS or NEUTRAL"})
		return
	}
	if err := s.learning.UpdateLearningOutcome(c.Request.Context(), id, outcome, req.Notes); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": id})
}

func (s *Server) handleNotifications(c *gin.Context) {
	limit := parseLimit(c.Query("limit"), 50)
	rows, err := s.notes.RecentNotifications(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": rows})
}

func parseLimit(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 500 {
		return fallback
	}
	return n
}
