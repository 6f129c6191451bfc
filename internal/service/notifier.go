package service

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeDanger  NoticeLevel = "danger"
)

// Notice is a user facing message, the snackbar of the storefront.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

type Notifier interface {
	Notify(level NoticeLevel, message string)
	// Drain returns pending notices, oldest first, and forgets them.
	Drain() []Notice
}

const maxPendingNotices = 50

type notifierImpl struct {
	log *zap.Logger

	mu      sync.Mutex
	pending []Notice
}

func NewNotifier(log *zap.Logger) Notifier {
	return &notifierImpl{
		log: log,
	}
}

func (n *notifierImpl) Notify(level NoticeLevel, message string) {
	n.log.Info("notice", zap.String("level", string(level)), zap.String("message", message))

	n.mu.Lock()
	defer n.mu.Unlock()

	n.pending = append(n.pending, Notice{Level: level, Message: message, At: time.Now()})
	if len(n.pending) > maxPendingNotices {
		n.pending = n.pending[len(n.pending)-maxPendingNotices:]
	}
}

func (n *notifierImpl) Drain() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := n.pending
	n.pending = nil
	if out == nil {
		return []Notice{}
	}
	return out
}
