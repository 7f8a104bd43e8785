// Package crm pushes captured leads into the Zoho CRM Leads module and keeps
// a retry queue for pushes that failed.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2"

	"github.com/wolfman30/leadintake/internal/integrations"
	"github.com/wolfman30/leadintake/pkg/logging"
)

var crmTracer = otel.Tracer("leadintake.internal.crm")

// ErrNotConfigured is returned when CRM credentials are missing.
var ErrNotConfigured = errors.New("crm: credentials are not configured")

// HTTPError reports a non-2xx response from the CRM.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("crm: lead creation failed: %d", e.StatusCode)
}

// LeadPayload is the CRM-facing view of a lead.
type LeadPayload struct {
	LeadID        string
	Name          string
	Email         string
	Phone         string
	Message       string
	Source        string
	Campaign      string
	LeadSource    string
	CorrelationID string
}

// Pusher creates leads in the CRM and returns the CRM record id.
type Pusher interface {
	CreateLead(ctx context.Context, lead LeadPayload) (string, error)
}

// Config holds OAuth and endpoint settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	TokenURL     string
	LeadsURL     string
	HTTPClient   *http.Client
}

// Client is a Zoho CRM client authenticating with a refresh token.
type Client struct {
	oauth      *oauth2.Config
	leadsURL   string
	httpClient *http.Client
	logs       integrations.Store
	logger     *logging.Logger

	mu           sync.Mutex
	refreshToken string
	token        *oauth2.Token
}

func NewClient(cfg Config, logs integrations.Store, logger *logging.Logger) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, ErrNotConfigured
	}
	if cfg.TokenURL == "" || cfg.LeadsURL == "" {
		return nil, errors.New("crm: token and leads urls are required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logs == nil {
		logs = integrations.Discard{}
	}
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		leadsURL:     cfg.LeadsURL,
		httpClient:   httpClient,
		logs:         logs,
		logger:       logger.Component("crm"),
		refreshToken: cfg.RefreshToken,
	}, nil
}

type zohoLead struct {
	LastName       string `json:"Last_Name"`
	Email          string `json:"Email,omitempty"`
	Phone          string `json:"Phone,omitempty"`
	Description    string `json:"Description,omitempty"`
	LeadSource     string `json:"Lead_Source"`
	CampaignSource string `json:"Campaign_Source,omitempty"`
	SourceSlug     string `json:"Custom_Lead_Source__c,omitempty"`
}

type zohoRequest struct {
	Data    []zohoLead `json:"data"`
	Trigger []string   `json:"trigger"`
}

type zohoResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
	} `json:"data"`
}

func buildRequest(lead LeadPayload) zohoRequest {
	lastName := strings.TrimSpace(lead.Name)
	if lastName == "" {
		lastName = "Unknown"
	}
	leadSource := lead.LeadSource
	if leadSource == "" {
		leadSource = lead.Source
	}
	if leadSource == "" {
		leadSource = "Website"
	}
	return zohoRequest{
		Data: []zohoLead{{
			LastName:       lastName,
			Email:          lead.Email,
			Phone:          lead.Phone,
			Description:    lead.Message,
			LeadSource:     leadSource,
			CampaignSource: lead.Campaign,
			SourceSlug:     lead.Source,
		}},
		Trigger: []string{"workflow"},
	}
}

// CreateLead posts the lead. A 401 triggers one token refresh and a single retry.
func (c *Client) CreateLead(ctx context.Context, lead LeadPayload) (string, error) {
	ctx, span := crmTracer.Start(ctx, "crm.zoho.create_lead")
	defer span.End()
	span.SetAttributes(
		attribute.String("leadintake.lead_id", lead.LeadID),
		attribute.String("leadintake.source", lead.Source),
	)

	body, err := json.Marshal(buildRequest(lead))
	if err != nil {
		return "", fmt.Errorf("crm: marshal lead: %w", err)
	}

	id, err := c.createOnce(ctx, body, lead.CorrelationID, false)
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized {
		c.logger.Info("crm token rejected, refreshing", "lead_id", lead.LeadID)
		id, err = c.createOnce(ctx, body, lead.CorrelationID, true)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.String("leadintake.crm_lead_id", id))
	return id, nil
}

func (c *Client) createOnce(ctx context.Context, body []byte, correlationID string, forceRefresh bool) (string, error) {
	token, err := c.accessToken(ctx, forceRefresh)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.leadsURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("crm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log(ctx, integrations.Entry{
			Type: "lead_submit", Level: integrations.LevelError,
			Message: "Zoho request failed", Error: err.Error(), CorrelationID: correlationID,
		})
		return "", fmt.Errorf("crm: post lead: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log(ctx, integrations.Entry{
			Type: "lead_submit", Level: integrations.LevelError, StatusCode: resp.StatusCode,
			Message: "Zoho lead creation failed", Error: strings.TrimSpace(string(raw)), CorrelationID: correlationID,
		})
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed zohoResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("crm: decode response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return "", errors.New("crm: empty response")
	}
	record := parsed.Data[0]
	if strings.EqualFold(record.Status, "error") {
		c.log(ctx, integrations.Entry{
			Type: "lead_submit", Level: integrations.LevelError, StatusCode: resp.StatusCode,
			Message: "Zoho rejected lead", Error: record.Code + ": " + record.Message, CorrelationID: correlationID,
		})
		return "", fmt.Errorf("crm: lead rejected: %s %s", record.Code, record.Message)
	}

	c.log(ctx, integrations.Entry{
		Type: "lead_submit", Level: integrations.LevelInfo, StatusCode: resp.StatusCode,
		Message: "Zoho lead created", CorrelationID: correlationID,
	})
	return record.Details.ID, nil
}

// accessToken returns a cached token unless it is expired or force is set.
func (c *Client) accessToken(ctx context.Context, force bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !force && c.token.Valid() {
		return c.token.AccessToken, nil
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: c.refreshToken}).Token()
	if err != nil {
		c.log(ctx, integrations.Entry{
			Type: "token_refresh", Level: integrations.LevelError,
			Message: "Zoho token refresh failed", Error: err.Error(),
		})
		return "", fmt.Errorf("crm: refresh token: %w", err)
	}
	if tok.RefreshToken != "" {
		c.refreshToken = tok.RefreshToken
	}
	c.token = tok
	c.log(ctx, integrations.Entry{Type: "token_refresh", Level: integrations.LevelInfo, Message: "Zoho token refreshed"})
	return tok.AccessToken, nil
}

func (c *Client) log(ctx context.Context, entry integrations.Entry) {
	entry.Provider = integrations.ProviderCRM
	if err := c.logs.Append(ctx, entry); err != nil {
		c.logger.Warn("failed to write integration log", "error", err, "type", entry.Type)
	}
}

// Disabled is a Pusher used when no CRM is configured; every push fails so
// leads stay queued until credentials are supplied.
type Disabled struct{}

func (Disabled) CreateLead(context.Context, LeadPayload) (string, error) {
	return "", ErrNotConfigured
}
