// Package telegram is a thin Bot API client covering the calls the shop
// needs: invoice links for in-chat payments, pre-checkout answers, webhook
// management, and plain messages.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	sharedConfig "waveshop/internal/shared/config"
)

type BotService struct {
	config     sharedConfig.TelegramConfig
	httpClient *http.Client
	baseURL    string
}

func NewBotService(config sharedConfig.TelegramConfig) *BotService {
	return &BotService{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: fmt.Sprintf("https://api.telegram.org/bot%s", config.BotToken),
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// CreateInvoiceLink creates a payable invoice link. Stars invoices carry a
// single price entry; amount is in the currency's smallest unit.
func (s *BotService) CreateInvoiceLink(ctx context.Context, title, description, payload, currency string, amount int64) (string, error) {
	body := map[string]any{
		"title":       title,
		"description": description,
		"payload":     payload,
		"currency":    currency,
		"prices": []map[string]any{
			{"label": title, "amount": amount},
		},
	}

	result, err := s.makeRequest(ctx, "createInvoiceLink", body)
	if err != nil {
		return "", err
	}

	var link string
	if err := json.Unmarshal(result, &link); err != nil {
		return "", fmt.Errorf("failed to decode invoice link: %w", err)
	}
	return link, nil
}

// AnswerPreCheckoutQuery approves or rejects a pre-checkout query. Telegram
// requires an answer within 10 seconds or the charge fails.
func (s *BotService) AnswerPreCheckoutQuery(ctx context.Context, queryID string, ok bool, errorMessage string) error {
	body := map[string]any{
		"pre_checkout_query_id": queryID,
		"ok":                    ok,
	}
	if !ok && errorMessage != "" {
		body["error_message"] = errorMessage
	}

	_, err := s.makeRequest(ctx, "answerPreCheckoutQuery", body)
	return err
}

// SendMessage sends a plain text message to a chat.
func (s *BotService) SendMessage(ctx context.Context, chatID int64, text string) error {
	body := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}

	_, err := s.makeRequest(ctx, "sendMessage", body)
	return err
}

// SetWebhook registers the update webhook, attaching the secret token the
// handler later verifies on every delivery.
func (s *BotService) SetWebhook(ctx context.Context, webhookURL string) error {
	body := map[string]any{
		"url": webhookURL,
	}
	if s.config.WebhookSecret != "" {
		body["secret_token"] = s.config.WebhookSecret
	}

	_, err := s.makeRequest(ctx, "setWebhook", body)
	return err
}

// DeleteWebhook removes the webhook.
func (s *BotService) DeleteWebhook(ctx context.Context) error {
	_, err := s.makeRequest(ctx, "deleteWebhook", nil)
	return err
}

func (s *BotService) makeRequest(ctx context.Context, method string, body map[string]any) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/%s", s.baseURL, method)

	var req *http.Request
	var err error

	if body != nil {
		jsonBody, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", marshalErr)
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.OK {
		return nil, fmt.Errorf("telegram API error: %s", result.Description)
	}

	return result.Result, nil
}
