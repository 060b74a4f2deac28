package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"formbridge/internal/config"
	"formbridge/internal/model"
	"formbridge/internal/repository"
	"formbridge/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg := config.DefaultServerConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDBName)
	userRepo := repository.NewUserRepo(db)
	formRepo := repository.NewFormRepo(db)

	if err := userRepo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to create user indexes: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	creator := &model.User{
		Name:     "Demo Creator",
		Email:    "demo@formbridge.local",
		Password: string(hash),
		Role:     model.RoleUser,
	}

	creatorID, err := userRepo.Create(ctx, creator)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			existing, lookupErr := userRepo.GetByEmail(ctx, creator.Email)
			if lookupErr != nil || existing == nil {
				log.Fatalf("Failed to load existing demo user: %v", lookupErr)
			}
			creatorID = existing.ID
			log.Printf("Demo user already exists, reusing %s", creatorID)
		} else {
			log.Fatalf("Failed to insert demo user: %v", err)
		}
	}

	now := time.Now()
	form := &model.Form{
		Title:       "Customer Onboarding",
		Description: "Basic intake details collected before the first appointment.",
		Creator:     creatorID,
		Questions: []model.Question{
			{
				Type:     model.QuestionText,
				Question: "Full Name",
				Required: true,
			},
			{
				Type:     model.QuestionText,
				Question: "Email Address",
				Required: true,
			},
			{
				Type:     model.QuestionNumber,
				Question: "Age",
			},
			{
				Type:     model.QuestionDate,
				Question: "Preferred Start Date",
			},
			{
				Type:     model.QuestionSingleChoice,
				Question: "How did you hear about us?",
				Options:  []string{"Search engine", "Social media", "A friend", "Other"},
			},
		},
		Settings: model.FormSettings{
			AllowAnonymous:         true,
			AllowMultipleResponses: true,
		},
		ChatConfig: model.ChatConfig{
			Enabled:     true,
			Personality: "professional",
		},
		UseNlpChat:  true,
		Status:      model.FormPublished,
		PublishedAt: &now,
	}

	for i := range form.Questions {
		form.Questions[i].ID = uuid.New().String()
	}
	form.ConversationalDialogues = service.DeriveDialogues(form.Questions)

	formID, err := formRepo.Create(ctx, form)
	if err != nil {
		log.Fatalf("Failed to insert form: %v", err)
	}

	fmt.Printf("Seeded creator %s (demo@formbridge.local / demo1234)\n", creatorID)
	fmt.Printf("Seeded published form %s '%s' with %d questions\n", formID, form.Title, len(form.Questions))
}
