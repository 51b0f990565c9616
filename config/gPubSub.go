package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

const maxPubSubAttempts = 3

// ExportEvent announces a finished export to downstream consumers.
type ExportEvent struct {
	WorkbookID    string    `json:"workbook_id"`
	FileName      string    `json:"file_name"`
	ArchiveObject string    `json:"archive_object,omitempty"`
	RowsExported  int       `json:"rows_exported"`
	RowsDeleted   int       `json:"rows_deleted"`
	EditsApplied  int       `json:"edits_applied"`
	ExportedAt    time.Time `json:"exported_at"`
	CorrelationId string    `json:"correlation_id,omitempty"`
}

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex
)

func getPubSubProjectID() string {
	// Prefer explicit override.
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	// Cloud Run/Cloud Functions often set this.
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	return os.Getenv("GCP_PROJECT")
}

// getPubSubClient uses Application Default Credentials unless PUBSUB_CREDENTIALS_JSON is provided.
func getPubSubClient(ctx context.Context, projectID string) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	defer pubsubClientMu.Unlock()
	if pubsubClient != nil {
		return pubsubClient, nil
	}
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON")
	var lastErr error
	for attempt := 1; attempt <= maxPubSubAttempts; attempt++ {
		var (
			c   *pubsub.Client
			err error
		)
		if credJSON != "" {
			c, err = pubsub.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
		} else {
			c, err = pubsub.NewClient(ctx, projectID)
		}
		if err == nil {
			pubsubClient = c
			log.Printf("pubsub client ready (project_id=%s attempt=%d)", projectID, attempt)
			return c, nil
		}
		lastErr = err
		sleep := retryDelay(attempt)
		log.Printf("failed to init pubsub client (project_id=%s attempt=%d): %v; retrying in %s", projectID, attempt, err, sleep)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
	return nil, fmt.Errorf("pubsub client: %w", lastErr)
}

// PublishExportEvent publishes and returns the Pub/Sub server-assigned message ID.
func PublishExportEvent(ctx context.Context, projectID string, topicName string, ev ExportEvent) (string, error) {
	if topicName == "" {
		return "", errors.New("PUBSUB_EXPORT_TOPIC is required")
	}
	client, err := getPubSubClient(ctx, projectID)
	if err != nil {
		return "", err
	}
	msgJSON, err := json.Marshal(ev)
	if err != nil {
		return "", err
	}
	result := client.Topic(topicName).Publish(ctx, &pubsub.Message{
		Data: msgJSON,
		Attributes: map[string]string{
			"event":       "workbook.exported",
			"workbook_id": ev.WorkbookID,
		},
	})
	return result.Get(ctx)
}
