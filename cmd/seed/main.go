package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"socialfeed/internal/auth"
	"socialfeed/internal/config"
	"socialfeed/internal/database"
	"socialfeed/internal/logging"
	"socialfeed/internal/models"
	"socialfeed/internal/ranking"
	"socialfeed/internal/services"
	"socialfeed/internal/store"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var topics = []string{"golang", "music", "football", "cooking", "travel", "science", "art", "movies"}

type seeder struct {
	faker        *gofakeit.Faker
	store        store.Store
	interactions *services.InteractionService
	log          *zap.SugaredLogger
}

func main() {
	users := flag.Int("users", 30, "number of profiles to create")
	postsPerUser := flag.Int("posts", 8, "posts per profile")
	seed := flag.Int64("seed", 0, "random seed, 0 picks one from the clock")
	tokens := flag.Int("tokens", 3, "print bearer tokens for this many profiles")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := database.Connect(cfg.Database, log); err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer database.Close()
	if err := database.Migrate(log); err != nil {
		log.Fatalw("failed to run migrations", "error", err)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	s := store.NewGormStore(database.DB)
	sd := &seeder{
		faker:        gofakeit.New(*seed),
		store:        s,
		interactions: services.NewInteractionService(s, log, nil),
		log:          log,
	}

	ctx := context.Background()
	profiles, err := sd.profiles(*users)
	if err != nil {
		log.Fatalw("failed to seed profiles", "error", err)
	}
	sd.follows(ctx, profiles)
	posts := sd.posts(ctx, profiles, *postsPerUser)
	sd.engagement(ctx, profiles, posts)

	log.Infow("database seeding completed", "seed", *seed, "profiles", len(profiles), "posts", len(posts))

	secret := cfg.JWTSecret
	if secret == "" {
		secret = "dev-secret"
	}
	verifier := auth.NewJWTVerifier(secret, cfg.JWTIssuer, log)
	for i := 0; i < *tokens && i < len(profiles); i++ {
		token, err := verifier.IssueToken(profiles[i].ID, 30*24*time.Hour)
		if err != nil {
			log.Fatalw("failed to issue token", "error", err)
		}
		fmt.Printf("%s\tBearer %s\n", profiles[i].Username, token)
	}
}

func (sd *seeder) profiles(n int) ([]models.Profile, error) {
	profiles := make([]models.Profile, n)
	for i := range profiles {
		profiles[i] = models.Profile{
			Username:    fmt.Sprintf("%s%d", strings.ToLower(sd.faker.Username()), i),
			DisplayName: sd.faker.Name(),
			AvatarURL:   sd.faker.ImageURL(128, 128),
			Bio:         sd.faker.Sentence(8),
			IsVerified:  sd.faker.Number(1, 10) == 1,
		}
	}
	if err := database.DB.Create(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (sd *seeder) follows(ctx context.Context, profiles []models.Profile) {
	for _, p := range profiles {
		for j, n := 0, sd.faker.Number(0, 8); j < n; j++ {
			target := profiles[sd.faker.Number(0, len(profiles)-1)]
			if target.ID == p.ID {
				continue
			}
			if _, err := sd.interactions.RecordFollow(ctx, p.ID, target.ID, false); err != nil {
				sd.log.Warnw("follow not seeded", "follower", p.Username, "error", err)
			}
		}
	}
}

func (sd *seeder) posts(ctx context.Context, profiles []models.Profile, perUser int) []models.Post {
	now := time.Now().UTC()
	var posts []models.Post
	for _, p := range profiles {
		for j := 0; j < perUser; j++ {
			content := sd.faker.Sentence(sd.faker.Number(4, 14))
			for k, n := 0, sd.faker.Number(0, 2); k < n; k++ {
				content += " #" + topics[sd.faker.Number(0, len(topics)-1)]
			}
			post := models.Post{
				UserID:    p.ID,
				Content:   content,
				Tags:      models.StringList(ranking.ExtractHashtags(content)),
				CreatedAt: now.Add(-time.Duration(sd.faker.Number(1, 14*24*60)) * time.Minute),
			}
			if sd.faker.Number(1, 6) == 1 {
				post.MediaURLs = models.StringList{sd.faker.ImageURL(640, 480)}
				post.MediaType = "image"
			}
			if len(posts) > 0 && sd.faker.Number(1, 5) == 1 {
				parent := posts[sd.faker.Number(0, len(posts)-1)]
				post.ReplyTo = &parent.ID
				if post.CreatedAt.Before(parent.CreatedAt) {
					post.CreatedAt = parent.CreatedAt.Add(time.Minute)
				}
			}
			if err := sd.store.CreatePost(ctx, &post); err != nil {
				sd.log.Warnw("post not seeded", "author", p.Username, "error", err)
				continue
			}
			posts = append(posts, post)
		}
	}
	return posts
}

func (sd *seeder) engagement(ctx context.Context, profiles []models.Profile, posts []models.Post) {
	if len(posts) == 0 {
		return
	}
	pick := func() uuid.UUID { return posts[sd.faker.Number(0, len(posts)-1)].ID }
	for _, p := range profiles {
		for j, n := 0, sd.faker.Number(5, 25); j < n; j++ {
			if _, err := sd.interactions.RecordLike(ctx, p.ID, pick(), false); err != nil {
				sd.log.Warnw("like not seeded", "user", p.Username, "error", err)
			}
		}
		for j, n := 0, sd.faker.Number(0, 3); j < n; j++ {
			if _, err := sd.interactions.RecordRepost(ctx, p.ID, pick(), false); err != nil {
				sd.log.Warnw("repost not seeded", "user", p.Username, "error", err)
			}
		}
		for j, n := 0, sd.faker.Number(10, 40); j < n; j++ {
			if err := sd.interactions.RecordView(ctx, p.ID, pick()); err != nil {
				sd.log.Warnw("view not seeded", "user", p.Username, "error", err)
			}
		}
	}
}
