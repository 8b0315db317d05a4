package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// SupabaseStore implements RowStore against a Supabase PostgREST endpoint.
// Row-level security scopes every query to the authenticated user carried by
// the access token.
type SupabaseStore struct {
	baseURL string
	client  *resty.Client
}

var _ RowStore = (*SupabaseStore)(nil)

// NewSupabaseStore creates a store for one project URL. accessToken is the
// authenticated user's JWT; anonKey identifies the project.
func NewSupabaseStore(projectURL, anonKey, accessToken string) *SupabaseStore {
	client := resty.New().
		SetTimeout(15*time.Second).
		SetHeader("apikey", anonKey).
		SetHeader("Authorization", "Bearer "+accessToken).
		SetHeader("Content-Type", "application/json")

	return &SupabaseStore{
		baseURL: projectURL + "/rest/v1",
		client:  client,
	}
}

func (s *SupabaseStore) Insert(ctx context.Context, table string, record interface{}) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal").
		SetBody(record).
		Post(fmt.Sprintf("%s/%s", s.baseURL, table))

	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	if resp.StatusCode() != 201 {
		return fmt.Errorf("insert into %s returned status %d: %s", table, resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

func (s *SupabaseStore) Update(ctx context.Context, table, id string, record interface{}) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal").
		SetQueryParam("id", "eq."+id).
		SetBody(record).
		Patch(fmt.Sprintf("%s/%s", s.baseURL, table))

	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", table, id, err)
	}
	if resp.StatusCode() != 204 && resp.StatusCode() != 200 {
		return fmt.Errorf("update %s/%s returned status %d: %s", table, id, resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

func (s *SupabaseStore) Select(ctx context.Context, table string, filters map[string]string, dest interface{}) error {
	req := s.client.R().SetContext(ctx).SetQueryParam("select", "*")
	for column, value := range filters {
		req.SetQueryParam(column, "eq."+value)
	}

	resp, err := req.Get(fmt.Sprintf("%s/%s", s.baseURL, table))
	if err != nil {
		return fmt.Errorf("failed to select from %s: %w", table, err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("select from %s returned status %d: %s", table, resp.StatusCode(), string(resp.Body()))
	}

	if err := json.Unmarshal(resp.Body(), dest); err != nil {
		return fmt.Errorf("failed to decode rows from %s: %w", table, err)
	}
	return nil
}

func (s *SupabaseStore) Delete(ctx context.Context, table, id string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("id", "eq."+id).
		Delete(fmt.Sprintf("%s/%s", s.baseURL, table))

	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", table, id, err)
	}
	if resp.StatusCode() != 204 && resp.StatusCode() != 200 {
		return fmt.Errorf("delete %s/%s returned status %d: %s", table, id, resp.StatusCode(), string(resp.Body()))
	}
	return nil
}
