package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"heylon/internal/logger"
	"heylon/internal/store/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"gorm.io/datatypes"
)

const normalizeTimeout = 30 * time.Second

// handleWebhook ingests a PineScript alert. The raw body is persisted
// verbatim before any interpretation; normalization runs async and the
// sender gets its 200 immediately.
func (s *Server) handleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "unreadable body")
		return
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		c.String(http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := webhookSchema.Validate(doc); err != nil {
		c.String(http.StatusBadRequest, "Missing ticker or type")
		return
	}

	ticker := gjson.GetBytes(body, "ticker").String()
	eventType := gjson.GetBytes(body, "type").String()

	// Stop-loss derivation needs origin data downstream; its absence is
	// tolerated but flagged.
	switch eventType {
	case model.SignalZoneCreated, model.SignalTap, model.SignalSetup:
		data := gjson.GetBytes(body, "data")
		if !data.Get("originHigh").Exists() && !data.Get("originLow").Exists() {
			logger.Warnf("[webhook] missing origin data for %s (%s)", ticker, eventType)
		}
	}

	now := time.Now()
	timestamp := gjson.GetBytes(body, "timestamp").String()
	if timestamp == "" {
		timestamp = now.UTC().Format(time.RFC3339)
	}
	rec := model.RawEvent{
		ID:            uuid.NewString(),
		Source:        "tradingview_pinescript",
		Ticker:        ticker,
		Payload:       datatypes.JSON(body),
		Timestamp:     timestamp,
		ReceivedAt:    now.UnixMilli(),
		CreatedAtUnix: now.UnixMilli(),
	}
	if err := s.raw.InsertRawEvent(c.Request.Context(), &rec); err != nil {
		logger.Errorf("[webhook] raw insert failed for %s: %v", ticker, err)
		c.String(http.StatusInternalServerError, "storage error")
		return
	}

	go func(rawID string) {
		ctx, cancel := context.WithTimeout(context.Background(), normalizeTimeout)
		defer cancel()
		if err := s.processor.Process(ctx, rawID); err != nil {
			logger.Errorf("[webhook] normalization failed for %s: %v", rawID, err)
		}
	}(rec.ID)

	c.String(http.StatusOK, "OK")
}
