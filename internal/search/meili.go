package search

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"github.com/rs/zerolog"

	"lawchain/api/internal/store"
)

const idxCases = "lawchain_cases"

// Meili wraps the Meilisearch client for the case index.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
	log     zerolog.Logger
}

// NewMeili creates a Meilisearch client and configures the case index.
// The client is usable even when Meilisearch is down; the health loop
// flips it healthy once the server comes back.
func NewMeili(url, apiKey string, log zerolog.Logger) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
		log:    log,
	}

	if _, err := client.Health(); err != nil {
		m.log.Warn().Str("url", url).Err(err).Msg("meilisearch unavailable")
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxCases,
		PrimaryKey: "id",
	}); err != nil {
		m.log.Warn().Err(err).Msg("create case index (may already exist)")
	}

	index := m.client.Index(idxCases)

	searchable := []string{"case_title", "client_name", "lawyer_name", "case_type"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.log.Warn().Err(err).Msg("update searchable attributes")
	}

	filterable := []interface{}{"status", "case_type"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.log.Warn().Err(err).Msg("update filterable attributes")
	}

	sortable := []string{"created_ts"}
	if _, err := index.UpdateSortableAttributes(&sortable); err != nil {
		m.log.Warn().Err(err).Msg("update sortable attributes")
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.log.Info().Msg("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the case index, newest cases first.
func (m *Meili) Search(query string) ([]store.Case, error) {
	if !m.healthy.Load() {
		return nil, fmt.Errorf("meilisearch unhealthy")
	}

	resp, err := m.client.Index(idxCases).Search(query, &meili.SearchRequest{
		Limit: 1000,
		Sort:  []string{"created_ts:desc"},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}

	cases := make([]store.Case, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		record, err := decodeRecord(hit)
		if err != nil {
			return nil, fmt.Errorf("decode search hit: %w", err)
		}
		cases = append(cases, record.toCase())
	}
	return cases, nil
}

func decodeRecord(hit meili.Hit) (CaseRecord, error) {
	raw, err := json.Marshal(hit)
	if err != nil {
		return CaseRecord{}, err
	}
	var record CaseRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return CaseRecord{}, err
	}
	return record, nil
}

// IndexCase adds or updates a case in the search index.
func (m *Meili) IndexCase(record CaseRecord) error {
	_, err := m.client.Index(idxCases).AddDocuments([]CaseRecord{record}, nil)
	return err
}

// DeleteCase removes a case from the search index.
func (m *Meili) DeleteCase(caseID int64) error {
	_, err := m.client.Index(idxCases).DeleteDocument(fmt.Sprintf("%d", caseID), nil)
	return err
}

// IndexCases bulk-indexes cases.
func (m *Meili) IndexCases(records []CaseRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxCases).AddDocuments(records, nil)
	return err
}
