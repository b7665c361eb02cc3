package room

import "time"

// LogEntry 房间事件
type LogEntry struct {
	Time    time.Time
	Message string
}

// eventLog 有界事件日志，满了以后淘汰最旧的记录
type eventLog struct {
	entries  []LogEntry
	capacity int
}

func newEventLog(capacity int) *eventLog {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &eventLog{
		entries:  make([]LogEntry, 0, capacity),
		capacity: capacity,
	}
}

func (l *eventLog) add(now time.Time, msg string) {
	if len(l.entries) == l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, LogEntry{Time: now, Message: msg})
}

// tail 最近 n 条，按时间先后排列
func (l *eventLog) tail(n int) []LogEntry {
	if n <= 0 || len(l.entries) == 0 {
		return nil
	}
	start := max(0, len(l.entries)-n)
	out := make([]LogEntry, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}

func (l *eventLog) size() int {
	return len(l.entries)
}
