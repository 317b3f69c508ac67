package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PREETHAM1590/waste-wise/internal/domain/models"
	"github.com/PREETHAM1590/waste-wise/internal/lib/apperr"
	"github.com/PREETHAM1590/waste-wise/internal/lib/jwt"
	"github.com/PREETHAM1590/waste-wise/internal/services/challenges"
	"github.com/PREETHAM1590/waste-wise/internal/services/marketplace"
	"github.com/gorilla/mux"
)

const (
	maxImageSize = 10 << 20
	maxJSONSize  = 1 << 20
)

func (s *APIServer) rootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "WasteWise API"})
	}
}

func (s *APIServer) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "timestamp": time.Now().UTC()})
	}
}

type CreateUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type CreateUserResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func (s *APIServer) createUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateUserRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}

		user, err := s.services.Users.Create(r.Context(), req.Email, req.Name)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		token, err := jwt.NewToken(user, s.jwtSecret, s.config.Auth.TokenTTL)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, CreateUserResponse{User: user, Token: token})
	}
}

func (s *APIServer) getUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.services.Users.Get(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}

type UpdateWalletRequest struct {
	WalletAddress string `json:"wallet_address"`
}

func (s *APIServer) updateWalletHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if id != userIDFrom(r.Context()) {
			s.writeError(w, r, apperr.ErrUnauthorized)
			return
		}

		var req UpdateWalletRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}

		user, err := s.services.Users.UpdateWallet(r.Context(), id, req.WalletAddress)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}

func (s *APIServer) statsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days, err := intQuery(r, "days", s.config.Stats.DefaultWindowDays)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		st, err := s.services.Stats.GetUserStats(r.Context(), mux.Vars(r)["id"], days)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, st)
	}
}

func (s *APIServer) transactionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if id != userIDFrom(r.Context()) {
			s.writeError(w, r, apperr.ErrUnauthorized)
			return
		}

		limit, err := intQuery(r, "limit", 0)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		txs, err := s.services.Users.ListTransactions(r.Context(), id, limit)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, txs)
	}
}

type ScanRequest struct {
	ImageRef string `json:"image_ref"`
}

// scanHandler accepts a multipart "file" upload or a JSON image reference.
func (s *APIServer) scanHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		image, imageRef, err := readScanInput(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		res, err := s.services.Ledger.RecordScan(r.Context(), userIDFrom(r.Context()), image, imageRef)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}

func readScanInput(w http.ResponseWriter, r *http.Request) ([]byte, *string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxImageSize)
		if err := r.ParseMultipartForm(maxImageSize); err != nil {
			return nil, nil, apperr.Invalid("malformed multipart body")
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, nil, apperr.Invalid("file is required")
		}
		defer file.Close()

		image, err := io.ReadAll(file)
		if err != nil {
			return nil, nil, apperr.Invalid("failed to read upload")
		}
		name := header.Filename
		return image, &name, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONSize)
	var req ScanRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, nil, err
	}
	if req.ImageRef == "" {
		return nil, nil, apperr.Invalid("image_ref is required")
	}

	return nil, &req.ImageRef, nil
}

func (s *APIServer) listItemsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := s.services.Marketplace.List(r.Context(), r.URL.Query().Get("category"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, items)
	}
}

func (s *APIServer) createItemHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in marketplace.CreateInput
		if err := decodeJSON(r, &in); err != nil {
			s.writeError(w, r, err)
			return
		}
		in.SellerID = userIDFrom(r.Context())

		item, err := s.services.Marketplace.Create(r.Context(), in)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, item)
	}
}

func (s *APIServer) purchaseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		receipt, err := s.services.Marketplace.Purchase(r.Context(), mux.Vars(r)["id"], userIDFrom(r.Context()))
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, receipt)
	}
}

func (s *APIServer) listChallengesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.services.Challenges.ListActive(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, list)
	}
}

func (s *APIServer) createChallengeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in challenges.CreateInput
		if err := decodeJSON(r, &in); err != nil {
			s.writeError(w, r, err)
			return
		}

		c, err := s.services.Challenges.Create(r.Context(), in)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, c)
	}
}

func (s *APIServer) joinChallengeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if err := s.services.Challenges.Join(r.Context(), id, userIDFrom(r.Context())); err != nil {
			s.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully joined challenge"})
	}
}

func (s *APIServer) claimRewardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.services.Challenges.ClaimReward(r.Context(), mux.Vars(r)["id"], userIDFrom(r.Context()))
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}

func (s *APIServer) leaderboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := intQuery(r, "limit", s.config.Leaderboard.DefaultLimit)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		board, err := s.services.Stats.GetLeaderboard(r.Context(), limit)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, board)
	}
}

type ChatRequest struct {
	Message string `json:"message"`
}

func (s *APIServer) chatbotHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, s.services.Assistant.Answer(req.Message))
	}
}

func intQuery(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Join(apperr.Invalid(key+" must be an integer"), err)
	}

	return n, nil
}
