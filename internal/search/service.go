package search

import (
	"context"

	"github.com/rs/zerolog"

	"lawchain/api/internal/store"
)

// CaseSearcher is the SQL fallback. Its query semantics are the contract;
// Meilisearch only accelerates them.
type CaseSearcher interface {
	SearchCases(ctx context.Context, query string) ([]store.Case, error)
}

// Service is the facade that tries Meilisearch first and falls back to SQL.
type Service struct {
	meili    *Meili
	fallback CaseSearcher
	log      zerolog.Logger
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, fallback CaseSearcher, log zerolog.Logger) *Service {
	return &Service{meili: meili, fallback: fallback, log: log}
}

// Search tries Meilisearch if healthy, otherwise answers from SQL.
func (s *Service) Search(ctx context.Context, query string) ([]store.Case, error) {
	if s.meili != nil && s.meili.Healthy() {
		cases, err := s.meili.Search(query)
		if err == nil {
			return cases, nil
		}
		s.log.Warn().Err(err).Msg("meilisearch error, falling back to sql")
	}
	return s.fallback.SearchCases(ctx, query)
}

// IndexCase indexes a case (fire-and-forget to Meilisearch).
func (s *Service) IndexCase(c store.Case) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	record := RecordFromCase(c)
	go func() {
		if err := s.meili.IndexCase(record); err != nil {
			s.log.Warn().Int64("case_id", record.ID).Err(err).Msg("index case")
		}
	}()
}

// DeleteCase removes a case from the search index (fire-and-forget).
func (s *Service) DeleteCase(caseID int64) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteCase(caseID); err != nil {
			s.log.Warn().Int64("case_id", caseID).Err(err).Msg("delete case from index")
		}
	}()
}

// ReindexAll pushes every case into Meilisearch. Called at startup when
// Meilisearch is reachable so the index catches up with the database.
func (s *Service) ReindexAll(cases []store.Case) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	records := make([]CaseRecord, 0, len(cases))
	for _, c := range cases {
		records = append(records, RecordFromCase(c))
	}
	if err := s.meili.IndexCases(records); err != nil {
		s.log.Warn().Err(err).Msg("reindex cases")
	}
}
