package controller

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"salespipe/models"
	"salespipe/pipeline"
	"salespipe/utils"
)

// boardSession is one client's live kanban surface. The board mutates
// optimistically as drag events stream in; subscribers on the session
// websocket hear about committed stage moves.
type boardSession struct {
	ID         string
	EmployeeID uint
	Board      *pipeline.Board
	CreatedAt  time.Time

	mu   sync.Mutex
	subs map[chan pipeline.Commit]struct{}
}

func (s *boardSession) subscribe() chan pipeline.Commit {
	ch := make(chan pipeline.Commit, 8)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *boardSession) unsubscribe(ch chan pipeline.Commit) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
	close(ch)
}

func (s *boardSession) broadcast(commit pipeline.Commit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- commit:
		default:
			// Slow subscriber; drop rather than stall the drag.
		}
	}
}

type BoardController struct {
	DB      *gorm.DB
	Logger  *log.Logger
	Sources *pipeline.Sources

	mu       sync.Mutex
	sessions map[string]*boardSession
	nextID   uint64
}

func NewBoardController(db *gorm.DB, logger *log.Logger, sources *pipeline.Sources) *BoardController {
	return &BoardController{
		DB:       db,
		Logger:   logger,
		Sources:  sources,
		sessions: map[string]*boardSession{},
	}
}

// CreateSession fetches a kanban batch and opens a board over it.
func (bc *BoardController) CreateSession(c *fiber.Ctx) error {
	employee := c.Locals("employee").(*models.Employee)

	var input struct {
		Filters   json.RawMessage `json:"filters"`
		Batch     int             `json:"batch"`
		SortField string          `json:"sortField"`
		SortDir   string          `json:"sortDirection"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	var filters pipeline.FilterState
	if len(input.Filters) > 0 {
		if err := json.Unmarshal(input.Filters, &filters); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid filters", err)
		}
	}
	if input.SortField == "" {
		input.SortField = "updatedAt"
	}
	if input.SortDir == "" {
		input.SortDir = "desc"
	}

	tags, err := LoadTagIndex(bc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load tags", err)
	}

	journeys, _, err := bc.Sources.RefreshKanban(c.Context(), filters, tags, input.SortField, input.SortDir, input.Batch)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch journeys", err)
	}

	bc.mu.Lock()
	bc.nextID++
	session := &boardSession{
		ID:         fmt.Sprintf("bs-%d-%d", time.Now().Unix(), bc.nextID),
		EmployeeID: employee.ID,
		Board:      pipeline.NewBoard(journeys),
		CreatedAt:  time.Now(),
		subs:       map[chan pipeline.Commit]struct{}{},
	}
	bc.sessions[session.ID] = session
	bc.mu.Unlock()

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(fiber.Map{
		"sessionId": session.ID,
		"buckets":   session.Board.Buckets(),
		"stages":    pipeline.Stages,
	}))
}

// CloseSession drops a board session.
func (bc *BoardController) CloseSession(c *fiber.Ctx) error {
	bc.mu.Lock()
	delete(bc.sessions, c.Params("sid"))
	bc.mu.Unlock()
	return c.SendStatus(fiber.StatusNoContent)
}

func (bc *BoardController) session(c *fiber.Ctx) (*boardSession, error) {
	bc.mu.Lock()
	session := bc.sessions[c.Params("sid")]
	bc.mu.Unlock()
	if session == nil {
		return nil, fmt.Errorf("board session not found")
	}
	employee := c.Locals("employee").(*models.Employee)
	if session.EmployeeID != employee.ID {
		return nil, fmt.Errorf("board session not found")
	}
	return session, nil
}

// dropPayload carries either an explicit drop ref or the raw geometry
// to resolve one from. Target ids encode as "journey:<id>" for cards
// and "stage:<n>" for columns.
type dropPayload struct {
	ItemID string `json:"itemId"`
	Stage  int    `json:"stage"`

	Pointer    *pipeline.Point       `json:"pointer"`
	ActiveRect *pipeline.Rect        `json:"activeRect"`
	Targets    []pipeline.DropTarget `json:"targets"`
}

func (p dropPayload) resolve() (pipeline.DropRef, error) {
	if p.ItemID != "" || p.Stage != 0 {
		return pipeline.DropRef{ItemID: p.ItemID, Stage: p.Stage}, nil
	}
	if p.Pointer == nil || p.ActiveRect == nil {
		return pipeline.DropRef{}, fmt.Errorf("drop target required")
	}
	id, ok := pipeline.ResolveDropTarget(*p.Pointer, *p.ActiveRect, p.Targets)
	if !ok {
		return pipeline.DropRef{}, fmt.Errorf("no droppable under pointer")
	}
	if rest, found := strings.CutPrefix(id, "stage:"); found {
		stage, err := strconv.Atoi(rest)
		if err != nil {
			return pipeline.DropRef{}, fmt.Errorf("bad stage target %q", id)
		}
		return pipeline.DropRef{Stage: stage}, nil
	}
	return pipeline.DropRef{ItemID: strings.TrimPrefix(id, "journey:")}, nil
}

// DragStart begins a drag on the session board.
func (bc *BoardController) DragStart(c *fiber.Ctx) error {
	session, err := bc.session(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Board session not found", nil)
	}

	var input struct {
		ItemID string `json:"itemId" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if err := session.Board.DragStart(input.ItemID); err != nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Cannot start drag", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"buckets": session.Board.Buckets()}))
}

// DragOver splices the active card toward the hovered target.
func (bc *BoardController) DragOver(c *fiber.Ctx) error {
	session, err := bc.session(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Board session not found", nil)
	}

	var payload dropPayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	ref, err := payload.resolve()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Cannot resolve drop target", err)
	}

	if err := session.Board.DragOver(ref); err != nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Invalid drag state", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"buckets": session.Board.Buckets()}))
}

// DragEnd settles the drag. When the card landed in another column the
// stage change is persisted and broadcast; a persist failure leaves the
// board where the user dropped the card.
func (bc *BoardController) DragEnd(c *fiber.Ctx) error {
	employee := c.Locals("employee").(*models.Employee)
	session, err := bc.session(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Board session not found", nil)
	}

	var payload dropPayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	ref, err := payload.resolve()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Cannot resolve drop target", err)
	}

	commit, err := session.Board.DragEnd(ref)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Invalid drag state", err)
	}

	var persistErr string
	if commit != nil {
		if err := bc.persistCommit(*commit, employee.Initials); err != nil {
			// The board keeps the optimistic placement; the caller
			// decides how to surface the failure.
			persistErr = err.Error()
			utils.LogError("stage_persist_failed", err, map[string]interface{}{
				"journey_id": commit.JourneyID,
				"to_stage":   commit.ToStage,
			})
		} else {
			session.broadcast(*commit)
		}
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"buckets":      session.Board.Buckets(),
		"commit":       commit,
		"persistError": persistErr,
	}))
}

// CancelDrag aborts the drag and restores the origin column.
func (bc *BoardController) CancelDrag(c *fiber.Ctx) error {
	session, err := bc.session(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Board session not found", nil)
	}
	session.Board.CancelDrag()
	return c.JSON(utils.SuccessResponse(fiber.Map{"buckets": session.Board.Buckets()}))
}

// MoveCard is the keyboard path: an immediate column move with the same
// persistence semantics as a pointer drag.
func (bc *BoardController) MoveCard(c *fiber.Ctx) error {
	employee := c.Locals("employee").(*models.Employee)
	session, err := bc.session(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Board session not found", nil)
	}

	var input struct {
		ItemID    string `json:"itemId" validate:"required"`
		ToStage   int    `json:"toStage" validate:"omitempty,min=1,max=6"`
		Direction string `json:"direction" validate:"omitempty,oneof=left right"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var commit *pipeline.Commit
	switch {
	case input.Direction == "left":
		commit, err = session.Board.MoveLeft(input.ItemID)
	case input.Direction == "right":
		commit, err = session.Board.MoveRight(input.ItemID)
	case input.ToStage != 0:
		commit, err = session.Board.MoveToStage(input.ItemID, input.ToStage)
	default:
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "toStage or direction is required", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Unknown journey or stage", err)
	}

	var persistErr string
	if commit != nil {
		if err := bc.persistCommit(*commit, employee.Initials); err != nil {
			// The board keeps the optimistic placement; the caller
			// decides how to surface the failure.
			persistErr = err.Error()
			utils.LogError("stage_persist_failed", err, map[string]interface{}{
				"journey_id": commit.JourneyID,
				"to_stage":   commit.ToStage,
			})
		} else {
			session.broadcast(*commit)
		}
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"buckets":      session.Board.Buckets(),
		"commit":       commit,
		"persistError": persistErr,
	}))
}

// persistCommit writes the canonical stage label and fires the audit
// bookkeeping without blocking.
func (bc *BoardController) persistCommit(commit pipeline.Commit, initials string) error {
	journeyID := utils.ParseUint(commit.JourneyID)

	var journey models.Journey
	if err := bc.DB.First(&journey, journeyID).Error; err != nil {
		return fmt.Errorf("journey not found: %w", err)
	}

	oldLabel := pipeline.StageLabel(pipeline.Classify(journey.JourneyStage))
	newLabel := pipeline.StageLabel(commit.ToStage)
	if err := bc.DB.Model(&journey).Update("Journey_Stage", newLabel).Error; err != nil {
		return fmt.Errorf("update stage: %w", err)
	}

	if oldLabel != newLabel {
		action := fmt.Sprintf("Journey_Stage: FROM %s TO %s", oldLabel, newLabel)
		go LogJourneyAction(bc.DB, bc.Logger, journeyID, action, initials)
		go StampLastActivity(bc.DB, bc.Logger, journeyID, action, initials)
	}
	return nil
}
