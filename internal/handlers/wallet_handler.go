package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/campusrun/backend/internal/models"
)

// WalletStore is the ledger subset needed for the wallet view.
type WalletStore interface {
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error)
}

// WalletHandler serves GET /api/v1/wallet.
type WalletHandler struct {
	Ledger WalletStore
	Logger *slog.Logger
}

type walletResponse struct {
	Credits      int                   `json:"credits"`
	Transactions []*models.Transaction `json:"transactions"`
}

func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := currentProfile(w, r)
	if !ok {
		return
	}

	credits, err := h.Ledger.Balance(r.Context(), p.ID)
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	txns, err := h.Ledger.ListTransactions(r.Context(), p.ID)
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, walletResponse{Credits: credits, Transactions: txns})
}
