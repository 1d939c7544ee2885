package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storynest/internal/models"
)

var sessionBase = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func attemptAt(offsetSec int, correct, total int, mode models.QuizMode, bookID int64) models.QuizAttempt {
	return models.QuizAttempt{
		ReaderID:     7,
		BookID:       bookID,
		ScoreCorrect: correct,
		ScoreTotal:   total,
		Mode:         mode,
		CreatedAt:    sessionBase.Add(time.Duration(offsetSec) * time.Second),
	}
}

func TestClusterSessionsSplitsOnIdleGap(t *testing.T) {
	attempts := []models.QuizAttempt{
		attemptAt(0, 3, 5, models.ModeRetry, 1),
		attemptAt(30, 1, 1, models.ModeRetry, 1),
		attemptAt(500, 2, 4, models.ModeRetry, 1),
	}

	sessions := ClusterSessions(attempts, 120*time.Second)
	require.Len(t, sessions, 2)

	first := sessions[0]
	assert.Equal(t, sessionBase, first.StartAt)
	assert.Equal(t, sessionBase.Add(30*time.Second), first.EndAt)
	assert.Equal(t, 4, first.TotalCorrect)
	assert.Equal(t, 6, first.TotalTotal)
	assert.Equal(t, 2, first.Attempts)
	assert.Equal(t, 67, first.Percentage, "percentage comes from summed scores, not averaged attempts")

	second := sessions[1]
	assert.Equal(t, sessionBase.Add(500*time.Second), second.StartAt)
	assert.Equal(t, 2, second.TotalCorrect)
	assert.Equal(t, 4, second.TotalTotal)
	assert.Equal(t, 50, second.Percentage)
}

func TestClusterSessionsGapMeasuresFromLastAttempt(t *testing.T) {
	// Each attempt lands within the gap of its predecessor even though the
	// last one is far beyond the gap from the session start.
	attempts := []models.QuizAttempt{
		attemptAt(0, 1, 1, models.ModeRetry, 1),
		attemptAt(100, 1, 1, models.ModeRetry, 1),
		attemptAt(200, 1, 1, models.ModeRetry, 1),
		attemptAt(300, 1, 1, models.ModeRetry, 1),
	}

	sessions := ClusterSessions(attempts, 120*time.Second)
	assert.Len(t, sessions, 1)
}

func TestClusterSessionsIsOrderIndependent(t *testing.T) {
	attempts := []models.QuizAttempt{
		attemptAt(500, 2, 4, models.ModeRetry, 1),
		attemptAt(0, 3, 5, models.ModeRetry, 1),
		attemptAt(30, 1, 1, models.ModeRetry, 1),
	}

	sessions := ClusterSessions(attempts, 120*time.Second)
	require.Len(t, sessions, 2)
	assert.Equal(t, sessionBase, sessions[0].StartAt)
	assert.Equal(t, 67, sessions[0].Percentage)
}

func TestClusterSessionsModeIsStickyStraight(t *testing.T) {
	attempts := []models.QuizAttempt{
		attemptAt(0, 1, 1, models.ModeRetry, 1),
		attemptAt(10, 0, 1, models.ModeStraight, 1),
		attemptAt(20, 1, 1, models.ModeRetry, 1),
	}

	sessions := ClusterSessions(attempts, 120*time.Second)
	require.Len(t, sessions, 1)
	assert.Equal(t, models.ModeStraight, sessions[0].Mode,
		"one straight attempt marks the whole session straight")
}

func TestClusterSessionsDefaultsGap(t *testing.T) {
	attempts := []models.QuizAttempt{
		attemptAt(0, 1, 1, models.ModeRetry, 1),
		attemptAt(121, 1, 1, models.ModeRetry, 1),
	}
	assert.Len(t, ClusterSessions(attempts, 0), 2)
	assert.Len(t, ClusterSessions(attempts, -time.Second), 2)
}

func TestClusterSessionsEmptyInput(t *testing.T) {
	assert.Nil(t, ClusterSessions(nil, 120*time.Second))
}

func TestLatestSession(t *testing.T) {
	attempts := []models.QuizAttempt{
		attemptAt(0, 3, 5, models.ModeRetry, 1),
		attemptAt(500, 2, 4, models.ModeRetry, 1),
	}

	latest := LatestSession(attempts, 120*time.Second)
	require.NotNil(t, latest)
	assert.Equal(t, sessionBase.Add(500*time.Second), latest.StartAt)
	assert.Equal(t, 50, latest.Percentage)

	assert.Nil(t, LatestSession(nil, 120*time.Second))
}

func TestAverageAcrossBooksClustersPerBook(t *testing.T) {
	// Two books quizzed in the same minute. Clustering per book keeps their
	// interleaved attempts in separate sessions.
	attempts := []models.QuizAttempt{
		attemptAt(0, 1, 1, models.ModeRetry, 1),
		attemptAt(5, 0, 1, models.ModeRetry, 2),
		attemptAt(10, 1, 1, models.ModeRetry, 1),
		attemptAt(15, 0, 1, models.ModeRetry, 2),
	}

	avg, count := AverageAcrossBooks(attempts, 120*time.Second)
	assert.Equal(t, 2, count)
	assert.Equal(t, 50, avg, "book one scores 100, book two scores 0")
}

func TestAverageAcrossBooksIsUnweighted(t *testing.T) {
	attempts := []models.QuizAttempt{
		// Book 1: one long session at 100%.
		attemptAt(0, 5, 5, models.ModeRetry, 1),
		attemptAt(10, 5, 5, models.ModeRetry, 1),
		// Book 2: two short sessions at 0%.
		attemptAt(0, 0, 1, models.ModeRetry, 2),
		attemptAt(1000, 0, 1, models.ModeRetry, 2),
	}

	avg, count := AverageAcrossBooks(attempts, 120*time.Second)
	assert.Equal(t, 3, count)
	assert.Equal(t, 33, avg, "sessions average equally regardless of attempt count")
}

func TestAverageAcrossBooksEmpty(t *testing.T) {
	avg, count := AverageAcrossBooks(nil, 120*time.Second)
	assert.Zero(t, avg)
	assert.Zero(t, count)
}
