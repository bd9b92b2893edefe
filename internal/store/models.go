package store

import "time"

type Case struct {
	ID            int64
	Title         string
	ClientName    string
	ClientEmail   string
	ClientAddress string
	LawyerName    string
	LawyerEmail   string
	CaseType      string
	Description   string
	ClientWallet  string
	LawyerWallet  string
	BlockchainTx  string
	Status        string
	CreatedAt     time.Time
}

// CaseUpdate carries the mutable attributes for a full update.
// Status, wallets and identifiers are never touched by it.
type CaseUpdate struct {
	Title         string
	ClientName    string
	ClientEmail   string
	ClientAddress string
	LawyerName    string
	LawyerEmail   string
	CaseType      string
	Description   string
}

type CaseStats struct {
	Total   int
	Active  int
	Closed  int
	Pending int
}

type Document struct {
	ID           int64
	CaseID       int64
	Name         string
	Hash         string
	Type         string
	UploadedBy   string
	BlockchainTx string
	UploadedAt   time.Time
}

type Hearing struct {
	ID        int64
	CaseID    int64
	Date      time.Time
	Time      string
	CourtName string
	Notes     string
	CreatedAt time.Time
}
