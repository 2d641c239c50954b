package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/videotube-api/internal/application/auth"
	"github.com/videotube-api/internal/application/comment"
	"github.com/videotube-api/internal/application/like"
	"github.com/videotube-api/internal/application/media"
	"github.com/videotube-api/internal/application/playlist"
	"github.com/videotube-api/internal/application/report"
	"github.com/videotube-api/internal/application/savedtweet"
	"github.com/videotube-api/internal/application/session"
	"github.com/videotube-api/internal/application/subscription"
	"github.com/videotube-api/internal/application/tweet"
	"github.com/videotube-api/internal/application/user"
	"github.com/videotube-api/internal/application/video"
	"github.com/videotube-api/internal/config"
	"github.com/videotube-api/internal/transport/http/handler"
	appmiddleware "github.com/videotube-api/internal/transport/http/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Services holds the application services the router exposes.
type Services struct {
	Auth          auth.Service
	Session       session.Service
	Users         user.Service
	Media         media.Service
	Videos        video.Service
	Tweets        tweet.Service
	Comments      comment.Service
	Likes         like.Service
	Subscriptions subscription.Service
	SavedTweets   savedtweet.Service
	Reports       report.Service
	Playlists     playlist.Service
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, svcs Services, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(appmiddleware.AccessLog(log))
	r.Use(appmiddleware.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(svcs.Session)

	// 5 requests/second, burst of 10, applied to the credential endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10, 10000)

	pager := handler.Pager{DefaultLimit: cfg.DefaultPageSize, MaxLimit: cfg.MaxPageSize}

	healthH := handler.NewHealthHandler()
	userH := handler.NewUserHandler(handler.UserHandlerDeps{
		Auth:    svcs.Auth,
		Session: svcs.Session,
		Users:   svcs.Users,
		Media:   svcs.Media,
		Cookies: handler.Cookies{Secure: cfg.CookieSecure},
		Pager:   pager,
		Logger:  log,
	})
	videoH := handler.NewVideoHandler(svcs.Videos, svcs.Media, pager, log)
	tweetH := handler.NewTweetHandler(svcs.Tweets, svcs.Media, pager, log)
	commentH := handler.NewCommentHandler(svcs.Comments, pager, log)
	likeH := handler.NewLikeHandler(svcs.Likes, pager, log)
	subH := handler.NewSubscriptionHandler(svcs.Subscriptions, pager, log)
	savedH := handler.NewSavedTweetHandler(svcs.SavedTweets, pager, log)
	reportH := handler.NewReportHandler(svcs.Reports, log)
	playlistH := handler.NewPlaylistHandler(svcs.Playlists, log)

	r.Get("/healthcheck", healthH.Check)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthcheck", healthH.Check)

		r.Route("/users", func(r chi.Router) {
			// ── Public routes (no auth) ──────────────────────────────────────
			r.With(sensitiveRL.Limit).Post("/register-email", userH.RegisterEmail)
			r.With(sensitiveRL.Limit).Post("/verify-email", userH.VerifyEmail)
			r.Post("/register", userH.Register)
			r.With(sensitiveRL.Limit).Post("/login", userH.Login)
			r.Post("/refresh-token", userH.RefreshToken)
			r.With(sensitiveRL.Limit).Post("/send-forgot-password-otp", userH.SendForgotPasswordOTP)
			r.With(sensitiveRL.Limit).Get("/send-forgot-password-otp", userH.SendForgotPasswordOTP)
			r.With(sensitiveRL.Limit).Post("/verify-forgot-password-otp", userH.VerifyForgotPasswordOTP)
			r.With(sensitiveRL.Limit).Post("/forgot-password", userH.ForgotPassword)

			// ── Authenticated routes ─────────────────────────────────────────
			r.Group(func(r chi.Router) {
				r.Use(authMw)
				r.Post("/logout", userH.Logout)
				r.Post("/change-password", userH.ChangePassword)
				r.Get("/current-user", userH.CurrentUser)
				r.Patch("/update-account", userH.UpdateAccount)
				r.Patch("/avatar", userH.Avatar)
				r.Patch("/cover-image", userH.CoverImage)
				r.Get("/c/{username}", userH.ChannelProfile)
				r.Delete("/delete-user", userH.DeleteUser)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Route("/videos", func(r chi.Router) {
				r.Get("/", videoH.List)
				r.Post("/", videoH.Publish)
				r.Patch("/toggle/publish/{videoId}", videoH.TogglePublish)
				r.Get("/{videoId}", videoH.Get)
				r.Patch("/{videoId}", videoH.Update)
				r.Delete("/{videoId}", videoH.Delete)
			})

			r.Route("/tweets", func(r chi.Router) {
				r.Post("/", tweetH.Create)
				r.Get("/find", tweetH.Find)
				r.Get("/user/{username}", tweetH.ByUser)
				r.Get("/{tweetId}", tweetH.Get)
				r.Patch("/{tweetId}", tweetH.Update)
				r.Delete("/{tweetId}", tweetH.Delete)
			})

			r.Route("/comments", func(r chi.Router) {
				r.Get("/v/{videoId}", commentH.ListForVideo)
				r.Post("/v/{videoId}", commentH.AddToVideo)
				r.Get("/t/{tweetId}", commentH.ListForTweet)
				r.Post("/t/{tweetId}", commentH.AddToTweet)
				r.Patch("/{commentId}", commentH.Update)
				r.Delete("/{commentId}", commentH.Delete)
			})

			r.Route("/likes", func(r chi.Router) {
				r.Post("/toggle/{subjectType}/{subjectId}", likeH.Toggle)
				r.Get("/videos", likeH.Videos)
				r.Get("/tweets", likeH.Tweets)
			})

			r.Route("/subscriptions", func(r chi.Router) {
				r.Post("/c/{channelId}", subH.Toggle)
				r.Get("/c/{channelId}", subH.Subscribers)
				r.Get("/u/{subscriberId}", subH.Channels)
			})

			r.Route("/saved-tweets", func(r chi.Router) {
				r.Get("/", savedH.List)
				r.Patch("/{tweetId}", savedH.Toggle)
			})

			r.Post("/reports/{subjectType}/{subjectId}", reportH.Report)

			r.Route("/playlists", func(r chi.Router) {
				r.Post("/", playlistH.Create)
				r.Get("/user/{userId}", playlistH.ByUser)
				r.Patch("/add/{videoId}/{playlistId}", playlistH.AddVideo)
				r.Patch("/remove/{videoId}/{playlistId}", playlistH.RemoveVideo)
				r.Get("/{playlistId}", playlistH.Get)
				r.Patch("/{playlistId}", playlistH.Update)
				r.Delete("/{playlistId}", playlistH.Delete)
			})
		})
	})

	return r
}
