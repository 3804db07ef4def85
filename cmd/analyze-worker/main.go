package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/kkk9131/Scaff-Saas/app"
	"github.com/kkk9131/Scaff-Saas/app/config"
	"github.com/kkk9131/Scaff-Saas/app/models"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

func main() {
	baseCtx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.QueueURL == "" {
		log.Fatal("QUEUE_URL environment variable is required")
	}

	db, err := app.OpenDB(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	store := app.NewStore(db)

	awsCfg, err := awsconfig.LoadDefaultConfig(baseCtx)
	if err != nil {
		log.Fatalf("failed to load AWS config: %v", err)
	}
	sqsClient := sqs.NewFromConfig(awsCfg)

	log.Printf("analysis worker started, listening on SQS queue: %s", cfg.QueueURL)

	for {
		recvCtx, cancel := context.WithTimeout(baseCtx, 30*time.Second)
		resp, err := sqsClient.ReceiveMessage(recvCtx, &sqs.ReceiveMessageInput{
			QueueUrl:            &cfg.QueueURL,
			MaxNumberOfMessages: 5,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   120,
		})
		cancel()

		if err != nil {
			log.Printf("ReceiveMessage error: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		if len(resp.Messages) == 0 {
			time.Sleep(2 * time.Second)
			continue
		}

		for _, m := range resp.Messages {
			if m.Body == nil {
				log.Printf("received message with empty body, skipping")
				continue
			}

			var msg models.JobMessage
			if err := json.Unmarshal([]byte(*m.Body), &msg); err != nil {
				// Poison pill; delete so it does not retry forever.
				log.Printf("failed to unmarshal job message: %v, body=%s", err, *m.Body)
				deleteMessage(sqsClient, cfg.QueueURL, m)
				continue
			}

			log.Printf("received job: job_id=%s project=%s drawing=%s",
				msg.JobID, msg.ProjectID, msg.DrawingID)

			jobCtx, jobCancel := context.WithTimeout(baseCtx, 2*time.Minute)
			err := app.ProcessAnalysisJob(jobCtx, store, msg)
			jobCancel()

			if err != nil {
				// Leave the message for redelivery after the visibility
				// timeout expires.
				log.Printf("error processing job job_id=%s: %v", msg.JobID, err)
				continue
			}

			deleteMessage(sqsClient, cfg.QueueURL, m)
		}
	}
}

func deleteMessage(sqsClient *sqs.Client, queueURL string, m sqstypes.Message) {
	if m.ReceiptHandle == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &queueURL,
		ReceiptHandle: m.ReceiptHandle,
	})
	if err != nil {
		log.Printf("failed to delete SQS message: %v", err)
	}
}
