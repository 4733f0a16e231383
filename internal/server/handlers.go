package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"clan-tracker/internal/domain"
)

type modifyRequest struct {
	ActionType  string   `json:"action_type"`
	Targets     []string `json:"targets"`
	Amounts     []int    `json:"amounts"`
	Reason      string   `json:"reason"`
	PerformedBy string   `json:"performed_by"`
}

type modifyResponse struct {
	TransactionID    string         `json:"transaction_id"`
	StartingBalances map[string]int `json:"starting_balances"`
	FinalBalances    map[string]int `json:"final_balances"`
}

func toModifyResponse(result *domain.ModifyResult) modifyResponse {
	return modifyResponse{
		TransactionID:    result.TransactionID,
		StartingBalances: result.StartingBalances,
		FinalBalances:    result.FinalBalances,
	}
}

func (s *Server) handleModify(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	var req modifyRequest
	if !s.decode(w, r, &req) {
		return
	}

	actionType := domain.ActionType(req.ActionType)
	if actionType != domain.ActionAdd && actionType != domain.ActionRemove {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "action_type must be ADD or REMOVE"})
		return
	}

	result, err := s.points.Modify(r.Context(), guildID, actionType, req.Targets, req.Amounts, req.Reason, req.PerformedBy)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toModifyResponse(result))
}

type dailyRequest struct {
	DiscordID string `json:"discord_id"`
}

type dailyResponse struct {
	modifyResponse
	NextClaimAt string `json:"next_claim_at,omitempty"`
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	var req dailyRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.points.Daily(r.Context(), guildID, req.DiscordID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := dailyResponse{modifyResponse: toModifyResponse(result)}
	if next, err := s.points.NextEligibleClaimTime(r.Context(), guildID, req.DiscordID); err == nil && !next.IsZero() {
		resp.NextClaimAt = next.Format(time.RFC3339)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type undoRequest struct {
	TransactionID string `json:"transaction_id"`
	PerformedBy   string `json:"performed_by"`
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	var req undoRequest
	if !s.decode(w, r, &req) {
		return
	}

	undoneID, err := s.points.Undo(r.Context(), guildID, req.TransactionID, req.PerformedBy)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"undone_transaction_id": undoneID})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	discordID := chi.URLParam(r, "discordID")

	balance, err := s.points.Balance(r.Context(), guildID, discordID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"discord_id": discordID, "balance": balance})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	var (
		entries []domain.LeaderboardEntry
		err     error
	)
	from := queryTime(r, "from", time.Time{})
	to := queryTime(r, "to", time.Time{})
	if from.IsZero() && to.IsZero() {
		entries, err = s.points.AllTimeLeaderboard(r.Context(), guildID)
	} else {
		if to.IsZero() {
			to = time.Now()
		}
		entries, err = s.points.PeriodLeaderboard(r.Context(), guildID, from, to)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	discordID := chi.URLParam(r, "discordID")

	transactions, err := s.points.History(r.Context(), guildID, discordID,
		queryTime(r, "from", time.Time{}),
		queryTime(r, "to", time.Now()),
		r.URL.Query().Get("include_daily") == "true",
		queryInt(r, "limit", 25))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"transactions": transactions})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	transactions, err := s.points.Audit(r.Context(), guildID,
		r.URL.Query().Get("performed_by"),
		queryTime(r, "from", time.Time{}),
		queryTime(r, "to", time.Now()),
		r.URL.Query().Get("include_daily") == "true",
		queryInt(r, "limit", 50))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"transactions": transactions})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	result, err := s.spreadsheet.Validate(r.Context(), guildID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePopulate(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	result, err := s.spreadsheet.Populate(r.Context(), guildID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) competitionID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "competitionID"))
	if err != nil || id < 1 {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid competition id"})
		return 0, false
	}
	return id, true
}

func (s *Server) handleTemplePreview(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	competitionID, ok := s.competitionID(w, r)
	if !ok {
		return
	}

	result, err := s.temple.Preview(r.Context(), guildID, competitionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type awardRequest struct {
	PerformedBy string `json:"performed_by"`
}

func (s *Server) handleTempleAward(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	competitionID, ok := s.competitionID(w, r)
	if !ok {
		return
	}

	var req awardRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, modify, err := s.temple.Award(r.Context(), guildID, competitionID, req.PerformedBy)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := map[string]any{"result": result}
	if modify != nil {
		resp["ledger"] = toModifyResponse(modify)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInactive(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	members, err := s.activity.InactiveMembers(r.Context(), guildID, queryInt(r, "days", 0))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	type inactiveMember struct {
		DiscordID         string     `json:"discord_id"`
		LastMessageSentAt *time.Time `json:"last_message_sent_at"`
	}
	out := make([]inactiveMember, 0, len(members))
	for _, m := range members {
		out = append(out, inactiveMember{DiscordID: m.DiscordID, LastMessageSentAt: m.LastMessageSentAt})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"members": out})
}

type trackRequest struct {
	DiscordID string `json:"discord_id"`
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	var req trackRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.tracker.Track(r.Context(), guildID, req.DiscordID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleSetCommandsEnabled(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	var req setEnabledRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.registry.SetEnabled(r.Context(), guildID, req.Enabled); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
