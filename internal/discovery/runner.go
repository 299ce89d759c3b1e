package discovery

import (
	"context"
	"fmt"
	"strings"

	"leadAgent/internal/config"
	"leadAgent/internal/database"
	"leadAgent/internal/llm"
	"leadAgent/internal/logger"

	"go.uber.org/zap"
)

// scorer — срез llm.Analyzer, нужный раннеру.
type scorer interface {
	ScoreProfile(ctx context.Context, profile llm.ProfileInput, criteria string, campaignID *uint) (*llm.ProfileScore, error)
}

// RunReport — итог прогона кампании.
type RunReport struct {
	Scanned      int // Профилей прошло фильтр подписчиков
	LeadsCreated int // Создано лидов (score прошел порог)
	Skipped      int // Дубликаты и профили ниже порога
	Errors       []string
}

// Runner ведет полный цикл кампании: скан hashtag-ов, AI-оценка,
// создание лидов.
type Runner struct {
	scanner   *Scanner
	scorer    scorer
	leads     *database.LeadRepository
	campaigns *database.CampaignRepository
	log       *logger.Zap
	cfg       config.Discovery
}

func NewRunner(scanner *Scanner, scorer scorer, leads *database.LeadRepository, campaigns *database.CampaignRepository, log *logger.Zap, cfg config.Discovery) *Runner {
	return &Runner{
		scanner:   scanner,
		scorer:    scorer,
		leads:     leads,
		campaigns: campaigns,
		log:       log,
		cfg:       cfg,
	}
}

// RunCampaign сканирует hashtag-и кампании и создает лидов из профилей,
// чей AI-балл не ниже порога. Уже известные username не дублируются.
func (r *Runner) RunCampaign(ctx context.Context, campaignID uint, browserProfile string) (*RunReport, error) {
	if r.scorer == nil {
		return nil, fmt.Errorf("AI-оценка недоступна: не задан OPENAI_API_KEY")
	}
	campaign, err := r.campaigns.GetByID(campaignID)
	if err != nil {
		return nil, fmt.Errorf("кампания %d: %w", campaignID, err)
	}
	if !campaign.IsActive {
		return nil, fmt.Errorf("кампания %q остановлена", campaign.Name)
	}

	_ = r.campaigns.LogActivity("CAMPAIGN_STARTED", map[string]any{
		"campaign_id": campaign.ID,
		"name":        campaign.Name,
	})

	report := &RunReport{}

	profiles, err := r.scanner.Scan(ctx, browserProfile, Criteria{
		Hashtags:     campaign.HashtagList(),
		MinFollowers: campaign.MinFollowers,
		MaxFollowers: campaign.MaxFollowers,
		MaxProfiles:  campaign.MaxLeads,
	})
	if err != nil {
		return report, err
	}
	report.Scanned = len(profiles)

	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		created, err := r.processProfile(ctx, campaign, p)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("@%s: %v", p.Username, err))
			continue
		}
		if created {
			report.LeadsCreated++
		} else {
			report.Skipped++
		}
	}

	_ = r.campaigns.LogActivity("CAMPAIGN_FINISHED", map[string]any{
		"campaign_id":   campaign.ID,
		"scanned":       report.Scanned,
		"leads_created": report.LeadsCreated,
		"skipped":       report.Skipped,
	})
	r.log.Info("кампания завершена",
		zap.Uint("campaign_id", campaign.ID),
		zap.Int("scanned", report.Scanned),
		zap.Int("leads_created", report.LeadsCreated))
	return report, nil
}

func (r *Runner) processProfile(ctx context.Context, campaign *database.Campaign, p Profile) (bool, error) {
	exists, err := r.leads.ExistsByUsername(p.Username)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	score, err := r.scorer.ScoreProfile(ctx, llm.ProfileInput{
		Username:   p.Username,
		FullName:   p.FullName,
		Bio:        p.Biography,
		Followers:  p.FollowersCount,
		Posts:      p.PostsCount,
		IsBusiness: p.IsBusinessAccount,
	}, campaign.Context, &campaign.ID)
	if err != nil {
		return false, fmt.Errorf("оценка профиля: %w", err)
	}
	if score.Score < r.cfg.ScoreThreshold {
		r.log.Debug("балл ниже порога",
			zap.String("username", p.Username),
			zap.Float64("score", score.Score))
		return false, nil
	}

	lead := &database.Lead{
		CampaignID:        campaign.ID,
		Username:          p.Username,
		FullName:          p.FullName,
		Biography:         p.Biography,
		ProfileURL:        "https://www.instagram.com/" + p.Username + "/",
		FollowersCount:    p.FollowersCount,
		PostsCount:        p.PostsCount,
		IsBusinessAccount: p.IsBusinessAccount,
		Score:             score.Score,
		Reasons:           strings.Join(score.Reasons, "\n"),
		Status:            database.LeadStatusDiscovered,
	}
	if err := r.leads.Create(lead); err != nil {
		return false, err
	}

	_ = r.campaigns.LogActivity("LEAD_CREATED", map[string]any{
		"campaign_id": campaign.ID,
		"lead_id":     lead.ID,
		"username":    p.Username,
		"score":       score.Score,
	})
	return true, nil
}
