package http

import (
	"net/http"
	"net/url"
	"strings"

	"outreachpass/internal/domain"
	"outreachpass/internal/services"
)

// trackingPixel is a 1x1 transparent GIF. Served inline so the open
// endpoint never depends on storage.
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

type TrackingController struct {
	Service *services.TrackingService

	// allowedHosts limits click redirects to hosts the notifier actually
	// links to, so the endpoint cannot be used as an open redirect.
	allowedHosts map[string]struct{}
}

// NewTrackingController creates a TrackingController. redirectBases are the
// base URLs legitimate tracked links point at (brand domains plus the API
// base); redirects to any other host are rejected.
func NewTrackingController(svc *services.TrackingService, redirectBases []string) *TrackingController {
	hosts := make(map[string]struct{}, len(redirectBases))
	for _, base := range redirectBases {
		parsed, err := url.Parse(base)
		if err != nil || parsed.Hostname() == "" {
			continue
		}
		hosts[strings.ToLower(parsed.Hostname())] = struct{}{}
	}
	return &TrackingController{Service: svc, allowedHosts: hosts}
}

func (c *TrackingController) redirectAllowed(target *url.URL) bool {
	_, ok := c.allowedHosts[strings.ToLower(target.Hostname())]
	return ok
}

// TrackOpen godoc
// @Summary Email open tracking pixel
// @Description Records an email open for the given message and returns a 1x1 GIF. Always succeeds so broken tracking never renders a broken image in the email.
// @Tags tracking
// @Produce image/gif
// @Param messageID path string true "Message ID"
// @Success 200 {file} binary
// @Router /api/v1/track/email/open/{messageID} [get]
func (c *TrackingController) TrackOpen(w http.ResponseWriter, r *http.Request) {
	messageID := r.PathValue("messageID")
	if messageID != "" {
		c.Service.RecordOpen(r.Context(), messageID)
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(trackingPixel)
}

// TrackClick godoc
// @Summary Email click tracking redirect
// @Description Records a link click for the given message and redirects to the target URL. Targets outside the configured brand and API hosts are rejected.
// @Tags tracking
// @Param url query string true "Target URL"
// @Param mid query string true "Message ID"
// @Param type query string false "Link type (card, vcard, wallet)"
// @Success 302
// @Failure 400 {object} APIResponse
// @Router /api/v1/track/email/click [get]
func (c *TrackingController) TrackClick(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	messageID := r.URL.Query().Get("mid")
	linkType := domain.LinkType(r.URL.Query().Get("type"))

	if target == "" {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, "url is required")
		return
	}
	parsed, err := url.Parse(target)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, "url must be absolute http or https")
		return
	}
	if !c.redirectAllowed(parsed) {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, "url host is not a known destination")
		return
	}

	if messageID != "" {
		c.Service.RecordClick(r.Context(), messageID, target, r.UserAgent(), linkType)
	}
	http.Redirect(w, r, target, http.StatusFound)
}
