package redis

import (
	"fmt"

	"github.com/mcoot/memorygame/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "memgame"

// identitySeqKey returns the counter used to allocate identity IDs
func identitySeqKey() string {
	return fmt.Sprintf("%s:seq:identity", keyPrefix)
}

// scoreSeqKey returns the counter used to allocate score IDs
func scoreSeqKey() string {
	return fmt.Sprintf("%s:seq:score", keyPrefix)
}

// identityKey returns the Redis key for an Identity
func identityKey(id int64) string {
	return fmt.Sprintf("%s:identity:%d", keyPrefix, id)
}

// displayNameIndexKey returns the Redis key for the display name -> identity id index
func displayNameIndexKey(displayName string) string {
	return fmt.Sprintf("%s:idx:display_name:%s", keyPrefix, displayName)
}

// scoreKey returns the Redis key for a ScoreRecord
func scoreKey(id int64) string {
	return fmt.Sprintf("%s:score:%d", keyPrefix, id)
}

// scoresForIdentityIndexKey returns the Redis key for the SET of score ids attributed to an identity
func scoresForIdentityIndexKey(identityID int64) string {
	return fmt.Sprintf("%s:idx:scores_for_identity:%d", keyPrefix, identityID)
}

// rankingKey returns the Redis key for the leaderboard ZSET
func rankingKey() string {
	return fmt.Sprintf("%s:ranking", keyPrefix)
}

// Every ranking member is added with the same ZSET score, so ZRANGE returns
// members in byte order. rankingMember lays out fixed-width decimal fields
// so that byte order is score DESC, then elapsed ASC, then id ASC. The
// trailing identity id (0 for guests) does not affect order; it lets the
// leaderboard script resolve names without decoding records.
func rankingMember(record *model.ScoreRecord) string {
	var identityID int64
	if record.IdentityID != nil {
		identityID = *record.IdentityID
	}
	return fmt.Sprintf("%020d:%020d:%020d:%d",
		^orderedUint(record.Score),
		orderedUint(record.ElapsedSeconds),
		record.ID,
		identityID,
	)
}

// rankingScore is shared by every ranking member
const rankingScore = 0

// orderedUint maps int64 onto uint64 preserving order
func orderedUint(v int64) uint64 {
	return uint64(v) ^ (1 << 63)
}

// scoreKeyPrefix and identityKeyPrefix let scripts build record keys from ids
func scoreKeyPrefix() string {
	return fmt.Sprintf("%s:score:", keyPrefix)
}

func identityKeyPrefix() string {
	return fmt.Sprintf("%s:identity:", keyPrefix)
}
