package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/memorygame/internal/model"
	"github.com/mcoot/memorygame/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Identity operations

func (s *Storage) CreateIdentity(ctx context.Context, identity *model.Identity) error {
	indexKey := displayNameIndexKey(identity.DisplayName)

	// Claim the name first so two registrations cannot both win
	claimed, err := s.client.SetNX(ctx, indexKey, "", 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return model.ErrDisplayNameTaken
	}

	id, err := s.client.Incr(ctx, identitySeqKey()).Result()
	if err != nil {
		_ = s.client.Del(ctx, indexKey).Err()
		return err
	}

	stored := *identity
	stored.ID = id
	data, err := json.Marshal(&stored)
	if err != nil {
		_ = s.client.Del(ctx, indexKey).Err()
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, identityKey(id), data, 0)
		pipe.Set(ctx, indexKey, strconv.FormatInt(id, 10), 0)
		return nil
	})
	if err != nil {
		_ = s.client.Del(ctx, indexKey).Err()
		return err
	}

	identity.ID = id
	return nil
}

func (s *Storage) GetIdentity(ctx context.Context, id int64) (*model.Identity, error) {
	data, err := s.client.Get(ctx, identityKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrIdentityNotFound
		}
		return nil, err
	}

	var identity model.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

func (s *Storage) GetIdentityByName(ctx context.Context, displayName string) (*model.Identity, error) {
	// Look up identity ID from display name index
	idStr, err := s.client.Get(ctx, displayNameIndexKey(displayName)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrIdentityNotFound
		}
		return nil, err
	}

	// An empty value is a registration still in flight
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return nil, model.ErrIdentityNotFound
	}

	return s.GetIdentity(ctx, id)
}

func (s *Storage) DeleteIdentity(ctx context.Context, id int64) error {
	idKey := identityKey(id)
	indexKey := scoresForIdentityIndexKey(id)

	return s.watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, idKey).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrIdentityNotFound
			}
			return err
		}

		var identity model.Identity
		if err := json.Unmarshal(data, &identity); err != nil {
			return err
		}

		scoreIDs, err := tx.SMembers(ctx, indexKey).Result()
		if err != nil {
			return err
		}

		scoreKeys := make([]string, 0, len(scoreIDs))
		for _, raw := range scoreIDs {
			scoreID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				continue
			}
			scoreKeys = append(scoreKeys, scoreKey(scoreID))
		}

		records, err := s.loadRecords(ctx, tx, scoreKeys)
		if err != nil {
			return err
		}

		members := make([]any, 0, len(records))
		for _, record := range records {
			members = append(members, rankingMember(record))
		}

		// Cascade: identity, its name index, its scores and their ranking entries go together
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, idKey, displayNameIndexKey(identity.DisplayName), indexKey)
			if len(scoreKeys) > 0 {
				pipe.Del(ctx, scoreKeys...)
			}
			if len(members) > 0 {
				pipe.ZRem(ctx, rankingKey(), members...)
			}
			return nil
		})
		return err
	}, idKey, indexKey)
}

// Score operations

func (s *Storage) InsertScore(ctx context.Context, record *model.ScoreRecord) error {
	id, err := s.client.Incr(ctx, scoreSeqKey()).Result()
	if err != nil {
		return err
	}

	stored := *record
	stored.ID = id
	data, err := json.Marshal(&stored)
	if err != nil {
		return err
	}

	write := func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, scoreKey(id), data, 0)
		pipe.ZAdd(ctx, rankingKey(), redis.Z{
			Score:  rankingScore,
			Member: rankingMember(&stored),
		})
		if stored.IdentityID != nil {
			pipe.SAdd(ctx, scoresForIdentityIndexKey(*stored.IdentityID), id)
		}
		return nil
	}

	if stored.IdentityID == nil {
		if _, err := s.client.TxPipelined(ctx, write); err != nil {
			return err
		}
		record.ID = id
		return nil
	}

	// Attributed scores must not outlive their identity
	idKey := identityKey(*stored.IdentityID)
	err = s.watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, idKey).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return model.ErrIdentityNotFound
		}
		_, err = tx.TxPipelined(ctx, write)
		return err
	}, idKey)
	if err != nil {
		return err
	}

	record.ID = id
	return nil
}

// topScoresScript reads the ranking and every record it names in one atomic
// step, so a concurrent cascade is either fully visible or not at all.
// It returns a flat list of (score record, identity or "") pairs.
var topScoresScript = redis.NewScript(`
local members = redis.call('ZRANGE', KEYS[1], '0', ARGV[1])
local result = {}
for _, member in ipairs(members) do
	local scoreID, identityID = string.match(member, '(%d+):(%d+)$')
	if not scoreID then
		return redis.error_reply('malformed ranking member ' .. member)
	end
	scoreID = string.gsub(scoreID, '^0+', '')
	local record = redis.call('GET', ARGV[2] .. scoreID)
	if not record then
		return redis.error_reply('ranked score ' .. scoreID .. ' has no record')
	end
	local identity = false
	if identityID ~= '0' then
		identity = redis.call('GET', ARGV[3] .. identityID)
	end
	table.insert(result, record)
	table.insert(result, identity or '')
end
return result
`)

func (s *Storage) TopScores(ctx context.Context, n int) ([]model.RankedScore, error) {
	if n <= 0 {
		return nil, model.ErrInvalidScoreLimit
	}

	values, err := topScoresScript.Run(ctx, s.client,
		[]string{rankingKey()},
		n-1, scoreKeyPrefix(), identityKeyPrefix(),
	).StringSlice()
	if err != nil {
		return nil, err
	}

	ranked := make([]model.RankedScore, 0, len(values)/2)
	for i := 0; i+1 < len(values); i += 2 {
		var record model.ScoreRecord
		if err := json.Unmarshal([]byte(values[i]), &record); err != nil {
			return nil, err
		}

		entry := model.RankedScore{
			ScoreRecord:  record,
			Rank:         len(ranked) + 1,
			ResolvedName: record.DisplayName,
		}
		// An attributed record whose identity is gone keeps its stored name
		if values[i+1] != "" {
			var identity model.Identity
			if err := json.Unmarshal([]byte(values[i+1]), &identity); err != nil {
				return nil, err
			}
			entry.ResolvedName = identity.DisplayName
		}
		ranked = append(ranked, entry)
	}
	return ranked, nil
}

// loadRecords fetches score records in key order, skipping keys that no
// longer exist
func (s *Storage) loadRecords(ctx context.Context, cmd redis.Cmdable, keys []string) ([]*model.ScoreRecord, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := cmd.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	records := make([]*model.ScoreRecord, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue
		}
		var record model.ScoreRecord
		if err := json.Unmarshal([]byte(str), &record); err != nil {
			return nil, err
		}
		records = append(records, &record)
	}
	return records, nil
}

// watch runs fn in an optimistic transaction over keys, retrying when a
// watched key changes underneath it
func (s *Storage) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	retries := s.cfg.MaxWatchRetries
	if retries < 1 {
		retries = 1
	}

	for i := 0; i < retries; i++ {
		err := s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return redis.TxFailedErr
}
