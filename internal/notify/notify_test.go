package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gere2/AIGNITE/internal/models"
)

func TestRecordedEventJSON(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ev := Recorded(&models.PredictionRecord{
		ID:         7,
		Prediction: models.Prediction{Label: models.RiskHigh, Probabilities: models.Probabilities{Low: 0.1, Medium: 0.2, High: 0.7}},
		CreatedAt:  at,
	})

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "assessment.recorded",
		"id": 7,
		"label": "High",
		"probabilities": {"low": 0.1, "medium": 0.2, "high": 0.7},
		"at": "2025-06-01T12:00:00Z"
	}`, string(data))
}

func TestDeletedEventOmitsPrediction(t *testing.T) {
	data, err := json.Marshal(Deleted(3, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "assessment.deleted", "id": 3, "at": "2025-06-01T00:00:00Z"}`, string(data))
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Deleted(1, time.Now())))
	assert.NoError(t, p.Close())
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not a url", "")
	assert.ErrorContains(t, err, "invalid redis url")
}

func TestRedisPublishUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	p := NewRedisPublisher(client, "")
	defer p.Close()

	assert.Equal(t, DefaultChannel, p.Channel())
	err := p.Publish(context.Background(), Deleted(1, time.Now()))
	assert.ErrorContains(t, err, "redis publish")
}
