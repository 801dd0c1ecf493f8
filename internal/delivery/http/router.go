package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(jobController *JobController, passController *PassController, trackingController *TrackingController) *http.ServeMux {
	mux := http.NewServeMux()

	// Jobs
	mux.HandleFunc("POST /api/v1/jobs", jobController.Enqueue)
	mux.HandleFunc("GET /api/v1/jobs/{jobID}", jobController.GetStatus)

	// Pass artifacts
	mux.HandleFunc("GET /api/v1/passes/apple/{cardID}", passController.DownloadApplePass)
	mux.HandleFunc("GET /api/v1/cards/{cardID}/vcard", passController.DownloadVCard)

	// Email tracking callbacks
	mux.HandleFunc("GET /api/v1/track/email/open/{messageID}", trackingController.TrackOpen)
	mux.HandleFunc("GET /api/v1/track/email/click", trackingController.TrackClick)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
