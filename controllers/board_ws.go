package controller

import (
	"log"

	"github.com/gofiber/websocket/v2"
)

// HandleBoardWS streams committed stage moves for one board session so
// other open views of the same board stay in sync. The session id
// comes from the upgrade path; auth happens before the upgrade.
func (bc *BoardController) HandleBoardWS(c *websocket.Conn) {
	defer c.Close()

	bc.mu.Lock()
	session := bc.sessions[c.Params("sid")]
	bc.mu.Unlock()
	if session == nil {
		_ = c.WriteJSON(map[string]string{"error": "board session not found"})
		return
	}

	ch := session.subscribe()
	defer session.unsubscribe(ch)

	// Reader goroutine: we only care about the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case commit, ok := <-ch:
			if !ok {
				return
			}
			msg := struct {
				Type      string `json:"type"`
				JourneyID string `json:"journeyId"`
				FromStage int    `json:"fromStage"`
				ToStage   int    `json:"toStage"`
			}{
				Type:      "stage_moved",
				JourneyID: commit.JourneyID,
				FromStage: commit.FromStage,
				ToStage:   commit.ToStage,
			}
			if err := c.WriteJSON(msg); err != nil {
				log.Printf("board ws write failed: %v", err)
				return
			}
		case <-done:
			return
		}
	}
}
