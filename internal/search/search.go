package search

import (
	"time"

	"lawchain/api/internal/store"
)

// CaseRecord is the indexed representation of a case. created_ts is the
// unix-seconds sort key; created_at keeps the original timestamp for
// rebuilding results.
type CaseRecord struct {
	ID            int64  `json:"id"`
	Title         string `json:"case_title"`
	ClientName    string `json:"client_name"`
	ClientEmail   string `json:"client_email"`
	ClientAddress string `json:"client_address"`
	LawyerName    string `json:"lawyer_name"`
	LawyerEmail   string `json:"lawyer_email"`
	CaseType      string `json:"case_type"`
	Description   string `json:"description"`
	ClientWallet  string `json:"client_wallet"`
	LawyerWallet  string `json:"lawyer_wallet"`
	BlockchainTx  string `json:"blockchain_tx"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
	CreatedTS     int64  `json:"created_ts"`
}

// RecordFromCase converts a stored case into its indexable form.
func RecordFromCase(c store.Case) CaseRecord {
	return CaseRecord{
		ID:            c.ID,
		Title:         c.Title,
		ClientName:    c.ClientName,
		ClientEmail:   c.ClientEmail,
		ClientAddress: c.ClientAddress,
		LawyerName:    c.LawyerName,
		LawyerEmail:   c.LawyerEmail,
		CaseType:      c.CaseType,
		Description:   c.Description,
		ClientWallet:  c.ClientWallet,
		LawyerWallet:  c.LawyerWallet,
		BlockchainTx:  c.BlockchainTx,
		Status:        c.Status,
		CreatedAt:     c.CreatedAt.UTC().Format(time.RFC3339Nano),
		CreatedTS:     c.CreatedAt.Unix(),
	}
}

func (r CaseRecord) toCase() store.Case {
	createdAt, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		createdAt = time.Unix(r.CreatedTS, 0).UTC()
	}
	return store.Case{
		ID:            r.ID,
		Title:         r.Title,
		ClientName:    r.ClientName,
		ClientEmail:   r.ClientEmail,
		ClientAddress: r.ClientAddress,
		LawyerName:    r.LawyerName,
		LawyerEmail:   r.LawyerEmail,
		CaseType:      r.CaseType,
		Description:   r.Description,
		ClientWallet:  r.ClientWallet,
		LawyerWallet:  r.LawyerWallet,
		BlockchainTx:  r.BlockchainTx,
		Status:        r.Status,
		CreatedAt:     createdAt,
	}
}
