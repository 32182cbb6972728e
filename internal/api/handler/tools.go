package handler

import (
	"net/http"

	"github.com/mcoot/combattracker/internal/api/request"
	"github.com/mcoot/combattracker/internal/api/response"
	"github.com/mcoot/combattracker/internal/dependencies/random"
	"github.com/mcoot/combattracker/internal/dice"
	"github.com/mcoot/combattracker/internal/markdown"
)

// ToolsHandler renders notes and rolls dice
type ToolsHandler struct {
	renderer *markdown.Renderer
	random   random.Random
}

// NewToolsHandler creates a new tools handler
func NewToolsHandler(renderer *markdown.Renderer, random random.Random) *ToolsHandler {
	return &ToolsHandler{renderer: renderer, random: random}
}

// Markdown handles POST /api/v1/markdown
func (h *ToolsHandler) Markdown(w http.ResponseWriter, r *http.Request) {
	var req request.MarkdownRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	html, err := h.renderer.HTML(req.Text)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.Markdown{HTML: html})
}

// Roll handles POST /api/v1/dice/roll
func (h *ToolsHandler) Roll(w http.ResponseWriter, r *http.Request) {
	var req request.RollRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	roll, err := dice.RollString(req.Expression, h.random)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RollFromModel(roll))
}
