package main

import (
	"context"
	"log"

	"github.com/kkk9131/Scaff-Saas/app"
	"github.com/kkk9131/Scaff-Saas/app/config"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := app.OpenDB(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	store := app.NewStore(db)

	billing := app.NewStripeBilling(cfg.Stripe.SecretKey)

	var queue app.QueueSender
	if cfg.QueueURL != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			log.Fatalf("failed to load AWS config: %v", err)
		}
		queue = sqs.NewFromConfig(awsCfg)
	}

	server := app.NewServer(store, billing, cfg, queue)
	router, err := app.NewRouter(server)
	if err != nil {
		log.Fatalf("failed to initialize router: %v", err)
	}
	if err := router.Run("0.0.0.0:8080"); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
