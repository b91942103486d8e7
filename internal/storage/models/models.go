package models

import (
	"fmt"
	"time"
)

const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// DefaultCategory absorbs anything a classifier backend proposes that is not
// in the allowed set.
const DefaultCategory = "General"

// Categories is the closed topic set. Order matters: plurality ties are
// broken by first occurrence, and prompts enumerate categories in this order.
var Categories = []string{
	"Development",
	"DeFi",
	"NFT",
	"General",
	"Security",
	"Economics",
	"Governance",
	"Scalability",
	"Interoperability",
	"Privacy",
	"Consensus",
	"Smart Contracts",
	"Wallets",
	"DAOs",
	"Layer 2",
	"Cross-Chain",
}

var categorySet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(Categories))
	for _, c := range Categories {
		set[c] = struct{}{}
	}
	return set
}()

// ValidCategory reports whether c is one of the allowed topic categories.
func ValidCategory(c string) bool {
	_, ok := categorySet[c]
	return ok
}

const (
	QuestionMinLen = 10
	QuestionMaxLen = 500
	AnswerMinLen   = 10
	AnswerMaxLen   = 5000
)

// Record is one submitted question/answer pair and its classification state.
// It is written once at submission and mutated exactly once by the batch
// processor; there is no re-classification path.
type Record struct {
	WalletAddress  string     `json:"walletAddress"`
	Question       string     `json:"question"`
	Answer         string     `json:"answer"`
	Classification string     `json:"classification,omitempty"`
	Category       string     `json:"category,omitempty"`
	Tokens         int        `json:"tokens,omitempty"`
	Processed      bool       `json:"processed"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
}

// Validate checks the stored shape of a record. Listings drop records that
// fail this check rather than surfacing decode noise to callers.
func (r *Record) Validate() error {
	if r.WalletAddress == "" {
		return fmt.Errorf("wallet address is required")
	}
	if len(r.Question) < QuestionMinLen || len(r.Question) > QuestionMaxLen {
		return fmt.Errorf("question length must be between %d and %d", QuestionMinLen, QuestionMaxLen)
	}
	if len(r.Answer) < AnswerMinLen || len(r.Answer) > AnswerMaxLen {
		return fmt.Errorf("answer length must be between %d and %d", AnswerMinLen, AnswerMaxLen)
	}
	if r.Classification != "" && r.Classification != DecisionApproved && r.Classification != DecisionRejected {
		return fmt.Errorf("invalid classification %q", r.Classification)
	}
	if r.Category != "" && !ValidCategory(r.Category) {
		return fmt.Errorf("invalid category %q", r.Category)
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("createdAt is required")
	}
	return nil
}

// KeyedRecord pairs a record with its object key.
type KeyedRecord struct {
	Key    string
	Record Record
}
