package storage

import (
	"sync"
	"time"
)

const maxRecordsPerUser = 100

type MemoryStorage struct {
	records map[int64][]GenerationRecord
	mutex   sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[int64][]GenerationRecord),
	}
}

func (m *MemoryStorage) SaveRecord(record *GenerationRecord) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	records := append(m.records[record.UserId], *record)

	// Keep only the newest records per user
	if len(records) > maxRecordsPerUser {
		records = records[len(records)-maxRecordsPerUser:]
	}
	m.records[record.UserId] = records
	return nil
}

func (m *MemoryStorage) RecentRecords(userId int64, limit int) ([]GenerationRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	records := m.records[userId]
	if limit > len(records) {
		limit = len(records)
	}

	// Newest first
	result := make([]GenerationRecord, 0, limit)
	for i := len(records) - 1; i >= len(records)-limit; i-- {
		result = append(result, records[i])
	}
	return result, nil
}

func (m *MemoryStorage) DeleteOlderThan(cutoff time.Time) (int64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var removed int64
	for userId, records := range m.records {
		kept := records[:0]
		for _, record := range records {
			if record.CreatedAt.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, record)
		}
		if len(kept) == 0 {
			delete(m.records, userId)
		} else {
			m.records[userId] = kept
		}
	}
	return removed, nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
