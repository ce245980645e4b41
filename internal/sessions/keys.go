package sessions

import "fmt"

// PeerKind distinguishes a direct (1:1) conversation from a group chat,
// since group chats need multi-user-aware session scoping and prompting.
type PeerKind string

const (
	PeerDirect PeerKind = "direct"
	PeerGroup  PeerKind = "group"
)

// BuildSessionKey builds the canonical composite session key:
// agent:{agentID}:{channel}:{peerKind}:{chatID}.
func BuildSessionKey(agentID, channel string, peerKind PeerKind, chatID string) string {
	return fmt.Sprintf("agent:%s:%s:%s:%s", agentID, channel, peerKind, chatID)
}

// BuildScopedSessionKey builds a session key honoring the configured scope:
//   - scope "global": one session per agent, shared by every channel/peer.
//   - scope "per-sender" (default): scoped per agent+channel+peer, except
//     direct messages further honor dmScope:
//     "main"                    → one shared DM session, keyed by mainKey
//     "per-peer"                → one session per sender across all channels
//     "per-channel-peer"        → one session per (channel, sender) pair (default)
//     "per-account-channel-peer" → same as per-channel-peer (no bot-account axis here)
func BuildScopedSessionKey(agentID, channel string, peerKind PeerKind, chatID, scope, dmScope, mainKey string) string {
	if scope == "global" {
		return fmt.Sprintf("agent:%s:global", agentID)
	}

	if peerKind != PeerDirect {
		return BuildSessionKey(agentID, channel, peerKind, chatID)
	}

	switch dmScope {
	case "main":
		key := mainKey
		if key == "" {
			key = "main"
		}
		return fmt.Sprintf("agent:%s:%s", agentID, key)
	case "per-peer":
		return fmt.Sprintf("agent:%s:dm:%s", agentID, chatID)
	default: // "per-channel-peer", "per-account-channel-peer"
		return BuildSessionKey(agentID, channel, peerKind, chatID)
	}
}

// BuildGroupTopicSessionKey isolates a forum topic within a group chat into
// its own session so parallel topics don't share history.
func BuildGroupTopicSessionKey(agentID, channel, chatID string, topicID int) string {
	return fmt.Sprintf("agent:%s:%s:%s:%d", agentID, channel, chatID, topicID)
}

// BuildCronSessionKey builds the session key used by a scheduled cron job run.
func BuildCronSessionKey(agentID, jobID string) string {
	return fmt.Sprintf("agent:%s:system:cron:%s", agentID, jobID)
}
