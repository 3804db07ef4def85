package app

import (
	"context"

	"github.com/kkk9131/Scaff-Saas/app/config"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// QueueSender is the slice of the SQS client used to enqueue analysis jobs.
type QueueSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Server holds the dependencies of every handler. Construct one at startup
// and register its methods on the router; nothing in this package is global.
type Server struct {
	store   *Store
	billing BillingClient
	cfg     *config.Config
	queue   QueueSender
}

// NewServer builds a Server. queue may be nil; drawing analysis jobs are
// then recorded but not enqueued, matching a deployment without a worker.
func NewServer(store *Store, billing BillingClient, cfg *config.Config, queue QueueSender) *Server {
	return &Server{
		store:   store,
		billing: billing,
		cfg:     cfg,
		queue:   queue,
	}
}
