package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
)

// Counter keys and id prefixes
const (
	CounterKeyCase     = "legal_case"
	CounterKeyTransfer = "legal_transfer"
	CounterKeyTask     = "legal_task"

	CasePrefix     = "LEGAL-"
	TransferPrefix = "TRANSFER-"
	TaskPrefix     = "AO-T-"
)

var (
	ErrInvalidCounterValue = errors.New("counter value must be a non-negative integer")
	ErrInvalidCounterKey   = errors.New("counter key is required")
)

// SequenceAllocator issues monotonically increasing, gap-free ids per tenant and counter key.
// All counters of a tenant live in one resource; every Next rewrites the whole map.
type SequenceAllocator struct {
	mu      sync.Mutex
	storage ResourceStorage
	metrics *Metrics
}

// NewSequenceAllocator creates an allocator over storage. metrics may be nil.
func NewSequenceAllocator(storage ResourceStorage, metrics *Metrics) *SequenceAllocator {
	return &SequenceAllocator{storage: storage, metrics: metrics}
}

// FormatSequenceID renders value as prefix + six zero-padded digits
// Example: LEGAL-000042
func FormatSequenceID(prefix string, value int64) string {
	return fmt.Sprintf("%s%06d", prefix, value)
}

// Next increments counterKey by one and returns the formatted id
func (a *SequenceAllocator) Next(ctx context.Context, tenantID, counterKey, prefix string) (string, error) {
	if counterKey == "" {
		return "", ErrInvalidCounterKey
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	counters, err := a.readCounters(ctx, tenantID)
	if err != nil {
		return "", err
	}

	next := counters[counterKey] + 1
	counters[counterKey] = next

	if err := a.writeCounters(ctx, tenantID, counters); err != nil {
		return "", err
	}

	a.metrics.idIssued(counterKey)
	return FormatSequenceID(prefix, next), nil
}

// Peek returns the id Next would issue without consuming it
func (a *SequenceAllocator) Peek(ctx context.Context, tenantID, counterKey, prefix string) (string, error) {
	if counterKey == "" {
		return "", ErrInvalidCounterKey
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	counters, err := a.readCounters(ctx, tenantID)
	if err != nil {
		return "", err
	}
	return FormatSequenceID(prefix, counters[counterKey]+1), nil
}

// Current returns the last issued value of counterKey (0 if never used)
func (a *SequenceAllocator) Current(ctx context.Context, tenantID, counterKey string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	counters, err := a.readCounters(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	return counters[counterKey], nil
}

// Reset sets counterKey so the next issued id is value+1.
// value arrives as float64 because it usually comes from untyped admin input.
func (a *SequenceAllocator) Reset(ctx context.Context, tenantID, counterKey string, value float64) error {
	if counterKey == "" {
		return ErrInvalidCounterKey
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 || value != math.Trunc(value) || value > math.MaxInt64/2 {
		return fmt.Errorf("%w: %v", ErrInvalidCounterValue, value)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	counters, err := a.readCounters(ctx, tenantID)
	if err != nil {
		return err
	}
	counters[counterKey] = int64(value)

	if err := a.writeCounters(ctx, tenantID, counters); err != nil {
		return err
	}

	log.Printf("[SEQUENCE] Counter %s for tenant %s reset to %d", counterKey, tenantID, int64(value))
	return nil
}

func (a *SequenceAllocator) readCounters(ctx context.Context, tenantID string) (map[string]int64, error) {
	if err := validateTenant(tenantID); err != nil {
		return nil, err
	}
	counters := make(map[string]int64)

	data, err := a.storage.Read(ctx, CounterResourceKey(tenantID))
	if errors.Is(err, ErrResourceNotFound) {
		return counters, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read counters: %w", err)
	}
	if len(data) == 0 {
		return counters, nil
	}
	if err := json.Unmarshal(data, &counters); err != nil {
		return nil, fmt.Errorf("failed to decode counters: %w", err)
	}
	return counters, nil
}

func (a *SequenceAllocator) writeCounters(ctx context.Context, tenantID string, counters map[string]int64) error {
	data, err := json.Marshal(counters)
	if err != nil {
		return fmt.Errorf("failed to encode counters: %w", err)
	}
	if err := a.storage.Write(ctx, CounterResourceKey(tenantID), data); err != nil {
		return fmt.Errorf("failed to write counters: %w", err)
	}
	return nil
}
