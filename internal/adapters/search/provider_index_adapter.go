package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/internal/domain/repositories"
	tsclient "github.com/zatekoja/carefinder/backend/internal/infrastructure/clients/typesense"
)

// perPage is the largest page Typesense serves.
const perPage = 250

// ProviderIndexAdapter serves the denormalized provider view from Typesense
type ProviderIndexAdapter struct {
	client *tsclient.Client
}

var _ repositories.ProviderIndexRepository = (*ProviderIndexAdapter)(nil)

// NewProviderIndexAdapter creates a new provider index adapter
func NewProviderIndexAdapter(client *tsclient.Client) *ProviderIndexAdapter {
	return &ProviderIndexAdapter{client: client}
}

// EnsureCollection creates the providers collection if it does not exist
func (a *ProviderIndexAdapter) EnsureCollection(ctx context.Context) error {
	return a.client.InitSchema(ctx)
}

func documentID(row *entities.ProviderSearchRow) string {
	return row.ProviderID + "_" + row.EstablishmentID
}

func toDocument(row *entities.ProviderSearchRow) (map[string]interface{}, error) {
	payload, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("failed to encode provider row: %w", err)
	}
	doc := map[string]interface{}{
		"id":                 documentID(row),
		"provider_id":        row.ProviderID,
		"establishment_id":   row.EstablishmentID,
		"provider_name":      row.ProviderName,
		"establishment_name": row.EstablishmentName,
		"specialization_ids": row.SpecializationIDs,
		"is_verified":        row.IsVerified,
		"created_at":         row.CreatedAt.Unix(),
		"payload":            string(payload),
	}
	if row.Address.City != "" {
		doc["city"] = row.Address.City
	}
	if row.Address.Locality != "" {
		doc["locality"] = row.Address.Locality
	}
	return doc, nil
}

// Index upserts provider rows
func (a *ProviderIndexAdapter) Index(ctx context.Context, rows []*entities.ProviderSearchRow) error {
	for _, row := range rows {
		doc, err := toDocument(row)
		if err != nil {
			return err
		}
		if _, err := a.client.Client().Collection(tsclient.ProvidersCollection).Documents().Upsert(ctx, doc); err != nil {
			return fmt.Errorf("failed to index provider %s: %w", documentID(row), err)
		}
	}
	return nil
}

// filterBy renders the pushed-down predicate. City and locality are
// substring matches, which Typesense filters cannot express; the search
// engine applies them to the returned rows.
func filterBy(query repositories.ProviderQuery) string {
	var clauses []string
	if query.OnlyVerified {
		clauses = append(clauses, "is_verified:=true")
	}
	if len(query.SpecializationIDs) > 0 {
		clauses = append(clauses, fmt.Sprintf("specialization_ids:=[%s]", quoteAll(query.SpecializationIDs)))
	}
	if query.EstablishmentID != "" {
		clauses = append(clauses, fmt.Sprintf("establishment_id:=%s", quote(query.EstablishmentID)))
	}
	return strings.Join(clauses, " && ")
}

func quote(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "") + "`"
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	return strings.Join(quoted, ",")
}

// QueryDenormalizedProviders pages through every indexed row matching query
func (a *ProviderIndexAdapter) QueryDenormalizedProviders(ctx context.Context, query repositories.ProviderQuery) ([]*entities.ProviderSearchRow, error) {
	rows := []*entities.ProviderSearchRow{}
	filter := filterBy(query)

	for page := 1; ; page++ {
		params := &api.SearchCollectionParams{
			Q:       pointer.String("*"),
			QueryBy: pointer.String("provider_name"),
			SortBy:  pointer.String("created_at:desc"),
			Page:    pointer.Int(page),
			PerPage: pointer.Int(perPage),
		}
		if filter != "" {
			params.FilterBy = pointer.String(filter)
		}

		result, err := a.client.Client().Collection(tsclient.ProvidersCollection).Documents().Search(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to search providers: %w", err)
		}
		if result.Hits == nil {
			break
		}

		for _, hit := range *result.Hits {
			if hit.Document == nil {
				continue
			}
			row, err := decodeRow(*hit.Document)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}

		if len(*result.Hits) < perPage {
			break
		}
	}
	return rows, nil
}

func decodeRow(doc map[string]interface{}) (*entities.ProviderSearchRow, error) {
	payload, ok := doc["payload"].(string)
	if !ok {
		return nil, fmt.Errorf("provider document %v has no payload", doc["id"])
	}
	row := &entities.ProviderSearchRow{}
	if err := json.Unmarshal([]byte(payload), row); err != nil {
		return nil, fmt.Errorf("failed to decode provider document %v: %w", doc["id"], err)
	}
	return row, nil
}
