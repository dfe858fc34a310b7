package telegram

import (
	"fmt"
	"sync"

	"github.com/gotd/td/tg"
)

type peerKind int

const (
	peerChannel peerKind = iota
	peerBasicChat
	peerUser
)

type peerInfo struct {
	kind       peerKind
	accessHash int64
}

// peerCache maps chat and user ids to the access hashes one session has
// learned for them. Hashes are account-scoped: the bot and relay sessions
// each keep their own cache, fed from update entities and dialog listings.
type peerCache struct {
	mu    sync.RWMutex
	peers map[int64]peerInfo
}

func newPeerCache() *peerCache {
	return &peerCache{peers: make(map[int64]peerInfo)}
}

func (c *peerCache) putChannel(id, accessHash int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peers[id] = peerInfo{kind: peerChannel, accessHash: accessHash}
}

func (c *peerCache) putBasicChat(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peers[id] = peerInfo{kind: peerBasicChat}
}

func (c *peerCache) putUser(id, accessHash int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peers[id] = peerInfo{kind: peerUser, accessHash: accessHash}
}

func (c *peerCache) get(id int64) (peerInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.peers[id]

	return p, ok
}

// inputPeer builds the tg input peer for a cached id.
func (c *peerCache) inputPeer(id int64) (tg.InputPeerClass, error) {
	p, ok := c.get(id)
	if !ok {
		return nil, fmt.Errorf("peer %d is not known to this session", id)
	}

	switch p.kind {
	case peerChannel:
		return &tg.InputPeerChannel{ChannelID: id, AccessHash: p.accessHash}, nil
	case peerBasicChat:
		return &tg.InputPeerChat{ChatID: id}, nil
	default:
		return &tg.InputPeerUser{UserID: id, AccessHash: p.accessHash}, nil
	}
}

// inputChannel builds the tg input channel for a cached channel id.
func (c *peerCache) inputChannel(id int64) (*tg.InputChannel, error) {
	p, ok := c.get(id)
	if !ok || p.kind != peerChannel {
		return nil, fmt.Errorf("channel %d is not known to this session", id)
	}

	return &tg.InputChannel{ChannelID: id, AccessHash: p.accessHash}, nil
}

// absorb caches every entity attached to an update batch.
func (c *peerCache) absorb(e tg.Entities) {
	for id, ch := range e.Channels {
		c.putChannel(id, ch.AccessHash)
	}
	for id := range e.Chats {
		c.putBasicChat(id)
	}
	for id, u := range e.Users {
		c.putUser(id, u.AccessHash)
	}
}
