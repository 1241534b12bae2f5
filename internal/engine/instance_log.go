package engine

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// journalLimit - сколько последних записей хранит инстанс
const journalLimit = 100

// JournalEntry - запись журнала инстанса (для /debug)
type JournalEntry struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// AddLog добавляет запись в журнал инстанса
func (i *Instance) AddLog(text, logType string) {
	now := time.Now()

	i.mu.Lock()
	i.journal = append(i.journal, JournalEntry{
		ID:        fmt.Sprintf("%d_%d", i.ID, now.UnixNano()),
		Text:      text,
		Type:      logType,
		Timestamp: now.UnixMilli(),
	})
	if extra := len(i.journal) - journalLimit; extra > 0 {
		i.journal = append(i.journal[:0], i.journal[extra:]...)
	}
	i.mu.Unlock()

	i.log.WithFields(logrus.Fields{
		"component": "journal",
		"log_type":  logType,
	}).Info(text)
}

// Journal - копия журнала
func (i *Instance) Journal() []JournalEntry {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]JournalEntry(nil), i.journal...)
}
