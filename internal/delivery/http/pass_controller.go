package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"outreachpass/internal/domain"
	"outreachpass/internal/services"
)

type PassController struct {
	Cards        domain.CardRepository
	WalletPasses domain.WalletPassRepository
	Store        domain.ArtifactStore
	Logger       *slog.Logger
}

func NewPassController(cards domain.CardRepository, walletPasses domain.WalletPassRepository, store domain.ArtifactStore, logger *slog.Logger) *PassController {
	return &PassController{
		Cards:        cards,
		WalletPasses: walletPasses,
		Store:        store,
		Logger:       logger,
	}
}

// DownloadApplePass godoc
// @Summary Download an Apple Wallet pass
// @Description Streams the .pkpass archive for the card. This is the URL behind the "Add to Apple Wallet" button in the pass email.
// @Tags passes
// @Produce application/vnd.apple.pkpass
// @Param cardID path string true "Card ID"
// @Success 200 {file} binary
// @Failure 404 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /api/v1/passes/apple/{cardID} [get]
func (c *PassController) DownloadApplePass(w http.ResponseWriter, r *http.Request) {
	cardID := r.PathValue("cardID")
	passes, err := c.WalletPasses.ListByCardID(r.Context(), cardID)
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to load wallet passes")
		return
	}
	var apple *domain.WalletPass
	for _, p := range passes {
		if p.Platform == domain.PlatformApple {
			apple = p
			break
		}
	}
	if apple == nil || apple.S3Key == "" {
		WriteJSONError(w, http.StatusNotFound, ErrCodeNotFound, "no apple pass for this card")
		return
	}

	archive, err := c.Store.Get(r.Context(), apple.S3Key)
	if err != nil {
		c.Logger.Error("failed to fetch pkpass from storage", "card_id", cardID, "error", err)
		WriteJSONError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to fetch pass")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.apple.pkpass")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cardID+".pkpass"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

// DownloadVCard godoc
// @Summary Download a card as vCard
// @Description Renders the card as a vCard 3.0 file for direct import into contacts.
// @Tags cards
// @Produce text/vcard
// @Param cardID path string true "Card ID"
// @Success 200 {file} binary
// @Failure 404 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /api/v1/cards/{cardID}/vcard [get]
func (c *PassController) DownloadVCard(w http.ResponseWriter, r *http.Request) {
	cardID := r.PathValue("cardID")
	card, err := c.Cards.GetByID(r.Context(), cardID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			WriteJSONError(w, http.StatusNotFound, ErrCodeNotFound, "card not found")
			return
		}
		WriteJSONError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to load card")
		return
	}

	vcard := services.BuildVCard(card)
	w.Header().Set("Content-Type", "text/vcard; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="contact.vcf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(vcard))
}

// decodeJSON decodes a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
