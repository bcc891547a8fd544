package service

import (
	"context"
	"sort"
	"time"

	"github.com/forgo/cityquest/internal/model"
)

// StatisticsService aggregates participations for the admin dashboard
type StatisticsService struct {
	participations ParticipationRepository
	quests         QuestRepository
	now            func() time.Time
}

// StatisticsServiceConfig holds configuration for the statistics service
type StatisticsServiceConfig struct {
	Participations ParticipationRepository
	Quests         QuestRepository
	Now            func() time.Time
}

// NewStatisticsService creates a new statistics service
func NewStatisticsService(cfg StatisticsServiceConfig) *StatisticsService {
	return &StatisticsService{
		participations: cfg.Participations,
		quests:         cfg.Quests,
		now:            nowOrDefault(cfg.Now),
	}
}

// QuestStatistics computes statistics over every participation of a quest
func (s *StatisticsService) QuestStatistics(ctx context.Context, questID string) (*model.QuestStatistics, error) {
	quest, err := s.quests.GetByID(ctx, questID)
	if err != nil {
		return nil, err
	}
	if quest == nil {
		return nil, ErrQuestNotFound
	}

	list, err := s.participations.ListByQuest(ctx, questID)
	if err != nil {
		return nil, err
	}

	stats := BuildQuestStatistics(questID, list)
	return &stats, nil
}

// BuildQuestStatistics aggregates participations. Averages cover completed
// participations only.
func BuildQuestStatistics(questID string, list []model.Participation) model.QuestStatistics {
	stats := model.QuestStatistics{
		QuestID:           questID,
		TotalParticipants: len(list),
		PopularLocations:  []string{},
		CommonMistakes:    []string{},
	}

	answersByLocation := map[string]int{}
	mistakesByQuestion := map[string]int{}
	var totalTimeMs int64
	var totalScore int

	for i := range list {
		p := &list[i]
		switch p.Status {
		case model.ParticipationCompleted:
			stats.CompletedParticipants++
			totalTimeMs += p.CompletionTimeMs
			totalScore += p.TotalScore
		case model.ParticipationDisqualified:
			stats.DisqualifiedParticipants++
		}

		for _, a := range p.Answers {
			answersByLocation[a.LocationID]++
			if !a.IsCorrect {
				mistakesByQuestion[a.QuestionID]++
			}
		}
	}

	if stats.CompletedParticipants > 0 {
		n := float64(stats.CompletedParticipants)
		stats.AverageCompletionTimeMs = float64(totalTimeMs) / n
		stats.AverageScore = float64(totalScore) / n
	}
	stats.PopularLocations = rankByCount(answersByLocation)
	stats.CommonMistakes = rankByCount(mistakesByQuestion)
	return stats
}

// rankByCount orders keys by descending count, ties by key
func rankByCount(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

// BuildSummary builds the results screen for a participation
func BuildSummary(p *model.Participation, quest *model.Quest, now time.Time) model.ParticipationSummary {
	summary := model.ParticipationSummary{
		ParticipationID:    p.ID,
		Status:             p.Status,
		CompletedLocations: len(p.CompletedLocations),
		TotalLocations:     quest.RouteLength(),
		Score:              p.TotalScore,
		Answers:            len(p.Answers),
		SpeedViolations:    p.ViolationCount(),
		ElapsedMs:          elapsedMs(p, now),
	}

	var answerMs int64
	for _, a := range p.Answers {
		if a.IsCorrect {
			summary.CorrectAnswers++
		}
		if a.IsAI {
			summary.AIQuestionsUsed++
		}
		answerMs += a.TimeSpentMs
	}
	if summary.Answers > 0 {
		summary.Accuracy = float64(summary.CorrectAnswers) / float64(summary.Answers)
		summary.AverageAnswerMs = answerMs / int64(summary.Answers)
	}
	return summary
}

// BuildUserProgress builds a progress report for a participation
func BuildUserProgress(p *model.Participation, quest *model.Quest, now time.Time) model.UserProgress {
	progress := model.UserProgress{
		UserID:            p.UserID,
		QuestID:           quest.ID,
		ParticipationID:   p.ID,
		Status:            string(p.Status),
		CurrentLocation:   p.CurrentLocationIndex,
		TotalLocations:    quest.RouteLength(),
		VisitedLocations:  append([]string{}, p.CompletedLocations...),
		AnsweredQuestions: []string{},
		Score:             p.TotalScore,
		TimeSpentMs:       elapsedMs(p, now),
		LastActivity:      p.UpdatedAt,
	}
	for _, a := range p.Answers {
		if a.IsCorrect {
			progress.AnsweredQuestions = append(progress.AnsweredQuestions, a.QuestionID)
		}
	}
	if progress.LastActivity.IsZero() {
		progress.LastActivity = p.RegistrationTime
	}
	return progress
}

func elapsedMs(p *model.Participation, now time.Time) int64 {
	if p.StartTime == nil {
		return 0
	}
	end := now
	if p.EndTime != nil {
		end = *p.EndTime
	}
	if end.Before(*p.StartTime) {
		return 0
	}
	return end.Sub(*p.StartTime).Milliseconds()
}
