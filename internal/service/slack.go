package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/casimirlb/shortener/internal/auth"
	"github.com/casimirlb/shortener/internal/models"
	"github.com/casimirlb/shortener/internal/repository"
)

const (
	slackBotUserPrefix = "slackbot-"

	shortenUsage = "Usage: `/shorten <url> [custom_code]`"
	statsUsage   = "Usage: `/urlstats <short_code|all>`"
	removeUsage  = "Usage: `/urlremove <short_code>`"
)

// SlackResponse is the payload returned to Slack for a slash command.
// The transport call always succeeds; user-facing failures are
// ephemeral messages so Slack does not retry the webhook.
type SlackResponse struct {
	ResponseType string       `json:"response_type"`
	Text         string       `json:"text,omitempty"`
	Blocks       []SlackBlock `json:"blocks,omitempty"`
}

type SlackBlock struct {
	Type   string      `json:"type"`
	Text   *SlackText  `json:"text,omitempty"`
	Fields []SlackText `json:"fields,omitempty"`
}

type SlackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func ephemeral(text string) *SlackResponse {
	return &SlackResponse{ResponseType: "ephemeral", Text: text}
}

// SlackDispatcher turns verified slash-command payloads into shorten,
// stats and remove operations. Each invoking workspace user is backed
// by a dedicated bot account, so listing and removal stay scoped to
// that invoker.
type SlackDispatcher struct {
	shortener *Shortener
	store     repository.Store
	baseURL   string
	logger    *zap.Logger
}

func NewSlackDispatcher(shortener *Shortener, store repository.Store, baseURL string, logger *zap.Logger) *SlackDispatcher {
	return &SlackDispatcher{
		shortener: shortener,
		store:     store,
		baseURL:   baseURL,
		logger:    logger,
	}
}

// Dispatch never fails at the transport level; any problem comes back
// as a reply payload.
func (d *SlackDispatcher) Dispatch(ctx context.Context, form url.Values) *SlackResponse {
	command := form.Get("command")
	text := strings.TrimSpace(form.Get("text"))
	userName := form.Get("user_name")

	if userName == "" {
		return ephemeral("Could not determine the invoking user.")
	}

	d.logger.Info("Slack command received",
		zap.String("command", command),
		zap.String("userName", userName))

	switch command {
	case "/shorten":
		return d.handleShorten(ctx, text, userName)
	case "/urlstats":
		return d.handleStats(ctx, text, userName)
	case "/urlremove":
		return d.handleRemove(ctx, text, userName)
	default:
		return ephemeral(fmt.Sprintf("Unknown command: %s", command))
	}
}

func (d *SlackDispatcher) handleShorten(ctx context.Context, text, userName string) *SlackResponse {
	fields := strings.Fields(text)
	if len(fields) == 0 || len(fields) > 2 {
		return ephemeral("Please provide a URL to shorten. " + shortenUsage)
	}

	rawURL := fields[0]
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}

	req := models.ShortenRequest{URL: rawURL}
	if len(fields) == 2 {
		req.CustomCode = fields[1]
	}

	botUser, err := d.botUser(ctx, userName)
	if err != nil {
		d.logger.Error("Failed to resolve bot user",
			zap.String("userName", userName),
			zap.Error(err))
		return ephemeral("Something went wrong, please try again later.")
	}

	resp, err := d.shortener.Create(ctx, botUser.ID, req)
	if err != nil {
		return ephemeral(shortenErrorText(err))
	}

	return &SlackResponse{
		ResponseType: "in_channel",
		Blocks: []SlackBlock{
			{
				Type: "section",
				Text: &SlackText{Type: "mrkdwn", Text: fmt.Sprintf("🔗 *URL shortened by %s*", userName)},
			},
			{
				Type: "section",
				Fields: []SlackText{
					{Type: "mrkdwn", Text: fmt.Sprintf("*Original:*\n%s", resp.OriginalURL)},
					{Type: "mrkdwn", Text: fmt.Sprintf("*Shortened:*\n<%s|%s>", resp.ShortURL, resp.ShortURL)},
				},
			},
			{
				Type: "context",
				Fields: []SlackText{
					{Type: "mrkdwn", Text: fmt.Sprintf("Code: `%s` | Created: %s", resp.ShortCode, resp.CreatedAt.Format("2006-01-02 15:04"))},
				},
			},
		},
	}
}

func shortenErrorText(err error) string {
	switch {
	case errors.Is(err, ErrInvalidURL):
		return "❌ That does not look like a valid URL."
	case errors.Is(err, ErrBlockedURL):
		return "❌ That URL is not allowed as a redirect target."
	case errors.Is(err, ErrInvalidCode):
		return "❌ Custom codes may use letters, digits, hyphens and underscores (max 20 chars)."
	case errors.Is(err, ErrCodeTaken):
		return "❌ That short code is already taken."
	default:
		return "❌ Failed to shorten the URL, please try again later."
	}
}

func (d *SlackDispatcher) handleStats(ctx context.Context, text, userName string) *SlackResponse {
	if text == "" {
		return ephemeral("Please provide a short code. " + statsUsage)
	}

	botUser, err := d.botUser(ctx, userName)
	if err != nil {
		d.logger.Error("Failed to resolve bot user",
			zap.String("userName", userName),
			zap.Error(err))
		return ephemeral("Something went wrong, please try again later.")
	}

	if text == "all" {
		return d.listStats(ctx, botUser.ID)
	}

	ident := &auth.Identity{UserID: botUser.ID, Username: botUser.Username}
	stats, err := d.shortener.Stats(ctx, ident, text)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return ephemeral(fmt.Sprintf("❌ No URL found with code: `%s`", text))
		case errors.Is(err, ErrForbidden):
			return ephemeral("❌ You can only view stats for links you created.")
		default:
			return ephemeral("❌ Failed to get stats, please try again later.")
		}
	}

	shortURL, _ := url.JoinPath(d.baseURL, stats.ShortCode)

	return &SlackResponse{
		ResponseType: "ephemeral",
		Blocks: []SlackBlock{
			{
				Type: "section",
				Text: &SlackText{Type: "mrkdwn", Text: fmt.Sprintf("📊 *Stats for* `%s`", stats.ShortCode)},
			},
			{
				Type: "section",
				Fields: []SlackText{
					{Type: "mrkdwn", Text: fmt.Sprintf("*Short URL:*\n<%s|%s>", shortURL, shortURL)},
					{Type: "mrkdwn", Text: fmt.Sprintf("*Original URL:*\n%s", stats.OriginalURL)},
					{Type: "mrkdwn", Text: fmt.Sprintf("*Click count:*\n%d", stats.ClickCount)},
					{Type: "mrkdwn", Text: fmt.Sprintf("*Created:*\n%s", stats.CreatedAt.Format("2006-01-02 15:04"))},
				},
			},
		},
	}
}

func (d *SlackDispatcher) listStats(ctx context.Context, ownerID string) *SlackResponse {
	mappings, err := d.shortener.ListByOwner(ctx, ownerID)
	if err != nil {
		d.logger.Error("Failed to list mappings", zap.Error(err))
		return ephemeral("❌ Failed to list your links, please try again later.")
	}
	if len(mappings) == 0 {
		return ephemeral("You have not created any links yet.")
	}

	var b strings.Builder
	b.WriteString("📊 *Your links:*\n")
	for _, m := range mappings {
		fmt.Fprintf(&b, "• `%s` → %s (%d clicks)\n", m.ShortCode, m.OriginalURL, m.ClickCount)
	}

	return ephemeral(b.String())
}

func (d *SlackDispatcher) handleRemove(ctx context.Context, text, userName string) *SlackResponse {
	fields := strings.Fields(text)
	if len(fields) != 1 {
		return ephemeral("Please provide a short code. " + removeUsage)
	}
	code := fields[0]

	botUser, err := d.botUser(ctx, userName)
	if err != nil {
		d.logger.Error("Failed to resolve bot user",
			zap.String("userName", userName),
			zap.Error(err))
		return ephemeral("Something went wrong, please try again later.")
	}

	ident := &auth.Identity{UserID: botUser.ID, Username: botUser.Username}
	if err := d.shortener.Delete(ctx, ident, code); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return ephemeral(fmt.Sprintf("❌ No URL found with code: `%s`", code))
		case errors.Is(err, ErrForbidden):
			return ephemeral("❌ You can only remove links you created.")
		default:
			return ephemeral("❌ Failed to remove the link, please try again later.")
		}
	}

	return ephemeral(fmt.Sprintf("🗑️ Removed `%s`.", code))
}

// botUser finds or creates the system account backing a workspace
// user. The placeholder hash can never match a password, so these
// accounts cannot log in interactively.
func (d *SlackDispatcher) botUser(ctx context.Context, userName string) (*models.User, error) {
	username := slackBotUserPrefix + strings.ToLower(userName)

	user, err := d.store.GetUserByUsername(ctx, username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("get bot user: %w", err)
	}

	user = &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: "*",
		IsActive:     true,
	}

	if err := d.store.CreateUser(ctx, user); err != nil {
		// A concurrent command may have created it first.
		if errors.Is(err, repository.ErrUsernameTaken) {
			return d.store.GetUserByUsername(ctx, username)
		}
		return nil, fmt.Errorf("create bot user: %w", err)
	}

	return user, nil
}
