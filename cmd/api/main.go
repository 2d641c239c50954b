package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/videotube-api/internal/application/auth"
	"github.com/videotube-api/internal/application/cascade"
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
	"github.com/videotube-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/videotube-api/internal/infrastructure/jwt"
	"github.com/videotube-api/internal/infrastructure/mail"
	redisinfra "github.com/videotube-api/internal/infrastructure/redis"
	s3infra "github.com/videotube-api/internal/infrastructure/s3"
	"github.com/videotube-api/internal/infrastructure/sns"
	"github.com/videotube-api/internal/pkg/cookiecrypt"
	"github.com/videotube-api/internal/pkg/logger"
	transporthttp "github.com/videotube-api/internal/transport/http"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	zl, err := logger.New(cfg.LogLevel, cfg.LogFile, cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx := context.Background()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables, zl)

	users := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	registrations := dynamo.NewRegistrationRepo(dynamoClient, cfg.DynamoTables.Registrations)
	tokens := dynamo.NewRefreshTokenRepo(dynamoClient, cfg.DynamoTables.RefreshTokens, zl)
	videos := dynamo.NewVideoRepo(dynamoClient, cfg.DynamoTables.Videos)
	tweets := dynamo.NewTweetRepo(dynamoClient, cfg.DynamoTables.Tweets)
	comments := dynamo.NewCommentRepo(dynamoClient, cfg.DynamoTables.Comments)
	playlists := dynamo.NewPlaylistRepo(dynamoClient, cfg.DynamoTables.Playlists)
	relations := dynamo.NewRelationRepo(dynamoClient, cfg.DynamoTables.Relations)
	reports := dynamo.NewReportRepo(dynamoClient, cfg.DynamoTables.Reports)

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		zl.Fatal("jwt provider", zap.Error(err))
	}
	sealer, err := cookiecrypt.NewSealer(cfg.CookieEncryptionKey)
	if err != nil {
		zl.Fatal("cookie sealer", zap.Error(err))
	}

	mailer := mail.NewDispatcher(mail.NewSender(cfg), zl)

	rdb, err := redisinfra.NewClient(ctx, cfg)
	if err != nil {
		zl.Fatal("redis", zap.Error(err))
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}
	limiter := redisinfra.NewAttemptLimiter(rdb, cfg, zl)

	events, err := sns.NewPublisher(cfg, zl)
	if err != nil {
		zl.Fatal("sns publisher", zap.Error(err))
	}

	mediaSvc := media.NewService(media.ServiceDeps{
		Store:  s3infra.NewStore(s3infra.NewClient(cfg), cfg, zl),
		Logger: zl,
	})

	clock := clockwork.NewRealClock()
	purger := cascade.NewPurger(cascade.ServiceDeps{
		CommentRepo:  comments,
		RelationRepo: relations,
		ReportRepo:   reports,
		PlaylistRepo: playlists,
		Logger:       zl,
	})
	sessionSvc := session.NewService(session.ServiceDeps{
		UserRepo:    users,
		TokenRepo:   tokens,
		JWTProvider: jwtProvider,
		Clock:       clock,
		Logger:      zl,
	})
	authDeps := auth.ServiceDeps{
		RegistrationRepo: registrations,
		UserRepo:         users,
		Sealer:           sealer,
		Mailer:           mailer,
		Limiter:          limiter,
		Media:            mediaSvc,
		Sessions:         sessionSvc,
		Events:           events,
		Clock:            clock,
		Logger:           zl,
	}
	authDeps.TTLsFromConfig(cfg)

	svcs := transporthttp.Services{
		Auth:    auth.NewService(authDeps),
		Session: sessionSvc,
		Users: user.NewService(user.ServiceDeps{
			UserRepo:     users,
			VideoRepo:    videos,
			TweetRepo:    tweets,
			CommentRepo:  comments,
			PlaylistRepo: playlists,
			RelationRepo: relations,
			ReportRepo:   reports,
			TokenRepo:    tokens,
			Purger:       purger,
			Media:        mediaSvc,
			Events:       events,
			Logger:       zl,
		}),
		Media: mediaSvc,
		Videos: video.NewService(video.ServiceDeps{
			VideoRepo: videos,
			Purger:    purger,
			Owners:    users,
			Media:     mediaSvc,
			Events:    events,
			Clock:     clock,
			Logger:    zl,
		}),
		Tweets: tweet.NewService(tweet.ServiceDeps{
			TweetRepo:    tweets,
			UserRepo:     users,
			CommentRepo:  comments,
			RelationRepo: relations,
			Purger:       purger,
			Owners:       users,
			Media:        mediaSvc,
			Clock:        clock,
			Logger:       zl,
		}),
		Comments: comment.NewService(comment.ServiceDeps{
			CommentRepo: comments,
			VideoRepo:   videos,
			TweetRepo:   tweets,
			Purger:      purger,
			Owners:      users,
			Clock:       clock,
		}),
		Likes: like.NewService(like.ServiceDeps{
			RelationRepo: relations,
			VideoRepo:    videos,
			TweetRepo:    tweets,
			CommentRepo:  comments,
			Owners:       users,
		}),
		Subscriptions: subscription.NewService(subscription.ServiceDeps{
			RelationRepo: relations,
			UserRepo:     users,
		}),
		SavedTweets: savedtweet.NewService(savedtweet.ServiceDeps{
			RelationRepo: relations,
			TweetRepo:    tweets,
			Owners:       users,
		}),
		Reports: report.NewService(report.ServiceDeps{
			ReportRepo:  reports,
			VideoRepo:   videos,
			TweetRepo:   tweets,
			CommentRepo: comments,
		}),
		Playlists: playlist.NewService(playlist.ServiceDeps{
			PlaylistRepo: playlists,
			VideoRepo:    videos,
			Owners:       users,
			Clock:        clock,
		}),
	}

	router := transporthttp.NewRouter(cfg, svcs, zl)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("server starting", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("forced shutdown", zap.Error(err))
	}
	zl.Info("server stopped")
}
