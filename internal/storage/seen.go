package storage

import "context"

// seenKey 保存所有已入库记录 ID 的 redis 集合。记录从不删除，集合只增不减
const seenKey = "nilhub:records:seen"

func (s *Store) isSeen(ctx context.Context, id string) bool {
	if s.Redis == nil {
		return false
	}
	ok, err := s.Redis.SIsMember(ctx, seenKey, id).Result()
	if err != nil {
		s.logger.Debug("redis seen lookup failed", "err", err)
		return false
	}
	return ok
}

func (s *Store) markSeen(ctx context.Context, id string) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.SAdd(ctx, seenKey, id).Err(); err != nil {
		s.logger.Debug("redis seen add failed", "err", err)
	}
}
