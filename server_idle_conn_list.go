package httpcore

import (
	"net"
	"sync"
)

// idleConnList tracks connections for the duration of each exchange
// (from before the request head is read until the exchange returns),
// in insertion order, so Server.Stop can force-close them and report
// how many it interrupted once its graceful deadline elapses.
type idleConnList struct {
	mtx       sync.Mutex
	firstItem *idleConnListItem
	lastItem  *idleConnListItem
}

type idleConnListItem struct {
	nextItem, prevItem *idleConnListItem
	conn               net.Conn
}

func (l *idleConnList) insertBack(c net.Conn) *idleConnListItem {
	item := &idleConnListItem{conn: c}
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.lastItem == nil {
		l.firstItem = item
		l.lastItem = item
	} else {
		l.lastItem.nextItem = item
		item.prevItem = l.lastItem
		l.lastItem = item
	}
	return item
}

func (l *idleConnList) remove(item *idleConnListItem) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if item.prevItem != nil {
		item.prevItem.nextItem = item.nextItem
	} else {
		l.firstItem = item.nextItem
	}
	if item.nextItem != nil {
		item.nextItem.prevItem = item.prevItem
	} else {
		l.lastItem = item.prevItem
	}
	item.prevItem = nil
	item.nextItem = nil
}

// closeAll force-closes every still-tracked connection, used by
// Server.Stop once the graceful deadline elapses, and reports how many
// it interrupted.
func (l *idleConnList) closeAll() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	n := 0
	for item := l.firstItem; item != nil; item = item.nextItem {
		_ = item.conn.Close()
		n++
	}
	l.firstItem, l.lastItem = nil, nil
	return n
}
