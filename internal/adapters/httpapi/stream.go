package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// frame is one message on the report stream. Kind is "progress", "report"
// or "error".
type frame struct {
	Kind     string           `json:"kind"`
	Progress *domain.Progress `json:"progress,omitempty"`
	ReportID string           `json:"report_id,omitempty"`
	Report   any              `json:"report,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// handleStream generates a report over a websocket, sending a progress frame
// per merged page and enriched event, then the report itself.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	input := parseInput(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	send := func(f frame) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(f)
	}

	// The hijacked connection outlives r.Context(); a failed read means the
	// client is gone and the report is abandoned.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	progress := func(p domain.Progress) {
		if err := send(frame{Kind: "progress", Progress: &p}); err != nil {
			s.logger.Debug("dropping progress frame", "error", err)
		}
	}

	res, err := s.cfg.Reporter.GenerateReportWithProgress(ctx, input, progress)
	if err != nil {
		_ = send(frame{Kind: "error", Error: err.Error()})
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "report failed"),
			time.Now().Add(writeWait))
		return
	}
	if err := send(frame{Kind: "report", ReportID: res.ReportID, Report: s.assembler.Assemble(res)}); err != nil {
		s.logger.Warn("sending report failed", "report_id", res.ReportID, "error", err)
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}
