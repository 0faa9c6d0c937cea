// Package gateway implements platform.Client against a chat-gateway REST API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"giveaway-engine/internal/common/logger"
	"giveaway-engine/internal/platform"

	"github.com/rs/zerolog"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     zerolog.Logger
}

type Config struct {
	BaseURL string
	Token   string
}

func NewClient(cfg Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		logger:  logger.Component("gateway"),
	}
}

// apiResponse is the gateway's envelope for every endpoint.
type apiResponse struct {
	Ok          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	Description string          `json:"description,omitempty"`
}

type messagePayload struct {
	Content string          `json:"content,omitempty"`
	Embed   *platform.Embed `json:"embed,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return c.notFoundError(path, data)
	case http.StatusOK, http.StatusCreated:
	default:
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(data))
	}

	var envelope apiResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !envelope.Ok {
		return fmt.Errorf("gateway error: %s", envelope.Description)
	}
	if out != nil && envelope.Result != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("failed to decode result: %w", err)
		}
	}
	return nil
}

// notFoundError maps a 404 onto the sentinel matching the missing resource.
func (c *Client) notFoundError(path string, body []byte) error {
	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err == nil {
		switch envelope.Error {
		case "channel_not_found":
			return platform.ErrChannelNotFound
		case "message_not_found":
			return platform.ErrMessageNotFound
		case "member_not_found":
			return platform.ErrMemberNotFound
		case "invite_not_found":
			return platform.ErrInviteNotFound
		}
	}
	c.logger.Debug().Str("path", path).Msg("Unclassified 404 from gateway")
	return platform.ErrMessageNotFound
}

func (c *Client) SendMessage(ctx context.Context, channelID, content string, embed *platform.Embed) (*platform.Message, error) {
	var msg platform.Message
	path := fmt.Sprintf("/channels/%s/messages", url.PathEscape(channelID))
	if err := c.do(ctx, http.MethodPost, path, &messagePayload{Content: content, Embed: embed}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) EditMessage(ctx context.Context, channelID, messageID, content string, embed *platform.Embed) error {
	path := fmt.Sprintf("/channels/%s/messages/%s", url.PathEscape(channelID), url.PathEscape(messageID))
	return c.do(ctx, http.MethodPatch, path, &messagePayload{Content: content, Embed: embed}, nil)
}

func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	path := fmt.Sprintf("/channels/%s/messages/%s", url.PathEscape(channelID), url.PathEscape(messageID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) FetchMessage(ctx context.Context, channelID, messageID string) (*platform.Message, error) {
	var msg platform.Message
	path := fmt.Sprintf("/channels/%s/messages/%s", url.PathEscape(channelID), url.PathEscape(messageID))
	if err := c.do(ctx, http.MethodGet, path, nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) MessageReactors(ctx context.Context, channelID, messageID, emoji string) ([]platform.User, error) {
	var users []platform.User
	path := fmt.Sprintf("/channels/%s/messages/%s/reactions/%s",
		url.PathEscape(channelID), url.PathEscape(messageID), url.PathEscape(emoji))
	if err := c.do(ctx, http.MethodGet, path, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) FetchMember(ctx context.Context, guildID, userID string) (*platform.Member, error) {
	var member platform.Member
	path := fmt.Sprintf("/guilds/%s/members/%s", url.PathEscape(guildID), url.PathEscape(userID))
	if err := c.do(ctx, http.MethodGet, path, nil, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (c *Client) ResolveInvite(ctx context.Context, code string) (string, error) {
	var result struct {
		GuildID   string `json:"guild_id"`
		GuildName string `json:"guild_name"`
	}
	path := fmt.Sprintf("/invites/%s", url.PathEscape(code))
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return "", err
	}
	return result.GuildName, nil
}

func (c *Client) Self(ctx context.Context) (platform.User, error) {
	var user platform.User
	if err := c.do(ctx, http.MethodGet, "/users/@me", nil, &user); err != nil {
		return platform.User{}, err
	}
	return user, nil
}
