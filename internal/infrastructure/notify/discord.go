package notify

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/prediction-league/internal/domain/notification"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

const discordEmbedColor = 0x2E86DE

// WebhookExecutor is the part of *discordgo.Session used for delivery.
type WebhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ WebhookExecutor = (*discordgo.Session)(nil)

type DiscordConfig struct {
	WebhookID    string
	WebhookToken string
	Username     string
}

// DiscordNotifier posts leaderboard updates to a channel webhook.
type DiscordNotifier struct {
	session      WebhookExecutor
	webhookID    string
	webhookToken string
	username     string
	logger       *logging.Logger
	now          func() time.Time
}

// NewDiscordNotifier builds a session without a bot token; webhooks carry
// their own credentials.
func NewDiscordNotifier(cfg DiscordConfig, logger *logging.Logger) (*DiscordNotifier, error) {
	session, err := discordgo.New("")
	if err != nil {
		return nil, crerr.Wrap(err, "create discord session")
	}
	return NewDiscordNotifierWithSession(session, cfg, logger)
}

func NewDiscordNotifierWithSession(session WebhookExecutor, cfg DiscordConfig, logger *logging.Logger) (*DiscordNotifier, error) {
	if logger == nil {
		logger = logging.Default()
	}
	webhookID := strings.TrimSpace(cfg.WebhookID)
	webhookToken := strings.TrimSpace(cfg.WebhookToken)
	if webhookID == "" || webhookToken == "" {
		return nil, crerr.New("discord webhook id and token are required")
	}
	return &DiscordNotifier{
		session:      session,
		webhookID:    webhookID,
		webhookToken: webhookToken,
		username:     strings.TrimSpace(cfg.Username),
		logger:       logger,
		now:          time.Now,
	}, nil
}

func (d *DiscordNotifier) NotifyLeaderboardUpdated(ctx context.Context, event notification.LeaderboardUpdated) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	message := notification.Render(event)
	embed := &discordgo.MessageEmbed{
		Title:       message.Title,
		Description: message.Body,
		Color:       discordEmbedColor,
		Timestamp:   d.now().UTC().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Standings changed", Value: strconv.Itoa(event.ParticipantsWrites), Inline: true},
			{Name: "Predictions scored", Value: strconv.Itoa(event.PredictionsScored), Inline: true},
		},
	}

	params := &discordgo.WebhookParams{
		Username: d.username,
		Embeds:   []*discordgo.MessageEmbed{embed},
	}
	if _, err := d.session.WebhookExecute(d.webhookID, d.webhookToken, false, params, discordgo.WithContext(ctx)); err != nil {
		return crerr.Wrapf(err, "execute discord webhook competition_id=%s", event.CompetitionID)
	}

	d.logger.InfoContext(ctx, "discord leaderboard notification sent", "competition_id", event.CompetitionID)
	return nil
}
