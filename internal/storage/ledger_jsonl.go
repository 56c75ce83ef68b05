package storage

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/segmentio/encoding/json"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// Ledger outcomes.
const (
	OutcomeImported = "imported"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
)

// LedgerEntry records the outcome of one article import.
type LedgerEntry struct {
	Time         time.Time `json:"time"`
	Source       string    `json:"source"`
	Journal      string    `json:"journal"`
	Volume       string    `json:"volume,omitempty"`
	Number       string    `json:"number,omitempty"`
	Outcome      string    `json:"outcome"`
	IssueID      int64     `json:"issue_id,omitempty"`
	SectionID    int64     `json:"section_id,omitempty"`
	SubmissionID int64     `json:"submission_id,omitempty"`
	Errors       []string  `json:"errors,omitempty"`
}

// AppendLedger adds an entry to the end of a JSONL ledger file.
func AppendLedger(path string, entry LedgerEntry) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening ledger for append: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding ledger entry: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing ledger entry: %w", err)
	}
	if _, err := f.WriteString("\n"); err != nil {
		return fmt.Errorf("writing newline: %w", err)
	}

	return nil
}

// ReadLedger reads all entries from a JSONL ledger file.
func ReadLedger(path string) ([]LedgerEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Missing ledger means nothing imported yet
		}
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	var entries []LedgerEntry
	scanner := bufio.NewScanner(f)

	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry LedgerEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	return entries, nil
}

// ImportedSources returns the set of sources with a successful import in entries.
func ImportedSources(entries []LedgerEntry) map[string]bool {
	done := make(map[string]bool)
	for _, e := range entries {
		if e.Outcome == OutcomeImported {
			done[e.Source] = true
		}
	}
	return done
}
