package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ChristophStock/tvteam-ted/services"
	"github.com/ChristophStock/tvteam-ted/store"
)

type QuestionHandler struct {
	session *services.SessionService
}

func NewQuestionHandler(session *services.SessionService) *QuestionHandler {
	return &QuestionHandler{session: session}
}

type questionRequest struct {
	Text    string                 `json:"text" binding:"required"`
	Options []services.OptionInput `json:"options" binding:"required"`
}

type voteRequest struct {
	// Pointer so index 0 passes the required binding.
	Option *int `json:"option" binding:"required"`
}

// respondError maps domain errors onto HTTP status codes. A voter is shown
// only "Voting not allowed", never the internal reason.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrIneligibleVote):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Voting not allowed"})
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrIndexOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func questionID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question ID"})
		return 0, false
	}
	return uint(id), true
}

func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	questions, err := h.session.ListQuestions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := h.session.CreateQuestion(c.Request.Context(), req.Text, req.Options)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, question)
}

func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := h.session.UpdateQuestion(c.Request.Context(), id, req.Text, req.Options)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	if err := h.session.DeleteQuestion(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *QuestionHandler) ResetQuestion(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	question, err := h.session.ResetQuestion(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

func (h *QuestionHandler) ActivateQuestion(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	question, err := h.session.ActivateQuestion(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

func (h *QuestionHandler) CloseQuestion(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	question, err := h.session.CloseQuestion(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

func (h *QuestionHandler) CastVote(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := h.session.CastVote(c.Request.Context(), id, *req.Option)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

func (h *QuestionHandler) GetVotingStatus(c *gin.Context) {
	status, err := h.session.GetVotingStatus(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
