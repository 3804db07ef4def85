package main

import (
	"context"
	"log"

	"github.com/kkk9131/Scaff-Saas/app"
	"github.com/kkk9131/Scaff-Saas/app/config"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
)

var ginLambda *ginadapter.GinLambda

// init runs once per Lambda container (cold start)
func init() {
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

	ginLambda = ginadapter.New(router)
}

// Handler is the Lambda entrypoint for API Gateway proxy integration
func Handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return ginLambda.ProxyWithContext(ctx, req)
}

func main() {
	lambda.Start(Handler)
}
