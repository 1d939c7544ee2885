// Package analytics derives study sessions from raw quiz-attempt logs.
// Everything here is pure: same attempts and gap always produce the same
// sessions, independent of input order.
package analytics

import (
	"math"
	"sort"
	"time"

	"storynest/internal/models"
)

// DefaultSessionGap is the idle gap that separates two study sessions.
const DefaultSessionGap = 120 * time.Second

// ClusterSessions folds a reader's attempts on one book into discrete
// sessions. Attempts are sorted by timestamp; a new session starts whenever
// the gap from the running session's last attempt exceeds gap. Scores sum
// across the session and the percentage is recomputed from the sums, not
// averaged. Session mode is sticky-escalating: one straight-mode attempt
// makes the whole session straight, and it never reverts.
func ClusterSessions(attempts []models.QuizAttempt, gap time.Duration) []models.QuizSession {
	if gap <= 0 {
		gap = DefaultSessionGap
	}
	if len(attempts) == 0 {
		return nil
	}

	sorted := make([]models.QuizAttempt, len(attempts))
	copy(sorted, attempts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var sessions []models.QuizSession
	var cur *models.QuizSession
	for _, a := range sorted {
		if cur == nil || a.CreatedAt.Sub(cur.EndAt) > gap {
			sessions = append(sessions, models.QuizSession{
				ReaderID: a.ReaderID,
				BookID:   a.BookID,
				StartAt:  a.CreatedAt,
				Mode:     models.ModeRetry,
			})
			cur = &sessions[len(sessions)-1]
		}
		cur.EndAt = a.CreatedAt
		cur.TotalCorrect += a.ScoreCorrect
		cur.TotalTotal += a.ScoreTotal
		cur.Attempts++
		if a.Mode == models.ModeStraight {
			cur.Mode = models.ModeStraight
		}
		cur.Percentage = percentage(cur.TotalCorrect, cur.TotalTotal)
	}
	return sessions
}

// LatestSession returns the chronologically last session, or nil when there
// are no attempts.
func LatestSession(attempts []models.QuizAttempt, gap time.Duration) *models.QuizSession {
	sessions := ClusterSessions(attempts, gap)
	if len(sessions) == 0 {
		return nil
	}
	return &sessions[len(sessions)-1]
}

// AverageAcrossBooks groups a reader's attempts by book, clusters each book
// independently, then averages the resulting sessions' percentages
// unweighted by session length. The two-level grouping matters: clustering
// all attempts together would merge unrelated books' quizzes that happen to
// fall close in time. Returns the average and the session count; zero
// sessions yields (0, 0).
func AverageAcrossBooks(attempts []models.QuizAttempt, gap time.Duration) (int, int) {
	byBook := make(map[int64][]models.QuizAttempt)
	for _, a := range attempts {
		byBook[a.BookID] = append(byBook[a.BookID], a)
	}

	bookIDs := make([]int64, 0, len(byBook))
	for id := range byBook {
		bookIDs = append(bookIDs, id)
	}
	sort.Slice(bookIDs, func(i, j int) bool { return bookIDs[i] < bookIDs[j] })

	sum, count := 0, 0
	for _, id := range bookIDs {
		for _, session := range ClusterSessions(byBook[id], gap) {
			sum += session.Percentage
			count++
		}
	}
	if count == 0 {
		return 0, 0
	}
	return int(math.Round(float64(sum) / float64(count))), count
}

func percentage(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}
