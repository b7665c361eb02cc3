package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key
	playerStatsKey    = "oldmaid:stats:"
	leaderboardKey    = "oldmaid:leaderboard:score"
	dailyLeaderboard  = "oldmaid:leaderboard:daily:"
	weeklyLeaderboard = "oldmaid:leaderboard:weekly:"

	maxRecordRetries = 20
)

// Period 排行榜周期
type Period string

const (
	PeriodAll    Period = "all"
	PeriodDaily  Period = "daily"
	PeriodWeekly Period = "weekly"
)

// PlayerStats 玩家统计数据
//
// 玩家 ID 每次加入房间都会重新生成，所以统计按玩家名字归档。
type PlayerStats struct {
	PlayerName string `json:"player_name"`

	// 总计
	TotalGames int `json:"total_games"` // 总场次
	Wins       int `json:"wins"`        // 胜场
	Losses     int `json:"losses"`      // 败场（抽到鬼牌）
	FirstOuts  int `json:"first_outs"`  // 第一个出完牌的次数

	// 积分
	Score int `json:"score"`

	// 连胜/连败
	CurrentStreak int `json:"current_streak"` // 正数为连胜，负数为连败
	MaxWinStreak  int `json:"max_win_streak"`

	LastPlayedAt int64 `json:"last_played_at"`
	CreatedAt    int64 `json:"created_at"`
}

// WinRate 胜率（百分比）
func (s *PlayerStats) WinRate() float64 {
	if s.TotalGames == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.TotalGames) * 100
}

// 积分规则
const (
	WinFirstOut = 15  // 第一个出完
	WinScore    = 10  // 普通获胜
	LoseScore   = -10 // 留下鬼牌

	// 连胜加成
	StreakBonus3  = 5
	StreakBonus5  = 10
	StreakBonus10 = 20
)

// Outcome 单个玩家在一局中的结果
type Outcome struct {
	PlayerName string
	Won        bool
	FinishRank int // 出完牌的名次，从 1 开始；败者为 0
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank       int     `json:"rank"`
	PlayerName string  `json:"player_name"`
	Score      int     `json:"score"`
	Wins       int     `json:"wins"`
	WinRate    float64 `json:"win_rate"`
}

// LeaderboardManager 排行榜管理器
type LeaderboardManager struct {
	redis *redis.Client
	now   func() time.Time
}

// NewLeaderboardManager 创建排行榜管理器
func NewLeaderboardManager(client *redis.Client) *LeaderboardManager {
	return &LeaderboardManager{redis: client, now: time.Now}
}

func statsKey(playerName string) string {
	return playerStatsKey + strings.ToLower(playerName)
}

// GetPlayerStats 获取玩家统计，不存在时返回 nil
func (lm *LeaderboardManager) GetPlayerStats(ctx context.Context, playerName string) (*PlayerStats, error) {
	return loadStats(ctx, lm.redis, statsKey(playerName))
}

// stringGetter *redis.Client 与事务中的 *redis.Tx 都满足
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func loadStats(ctx context.Context, c stringGetter, key string) (*PlayerStats, error) {
	data, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var stats PlayerStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("反序列化玩家统计失败: %w", err)
	}
	return &stats, nil
}

// updateWinLossStats 更新胜负统计和连胜/连败，返回基础积分变化
func updateWinLossStats(stats *PlayerStats, o Outcome) int {
	if !o.Won {
		stats.Losses++
		stats.CurrentStreak = min(-1, stats.CurrentStreak-1)
		return LoseScore
	}

	stats.Wins++
	stats.CurrentStreak = max(1, stats.CurrentStreak+1)
	if stats.CurrentStreak > stats.MaxWinStreak {
		stats.MaxWinStreak = stats.CurrentStreak
	}
	if o.FinishRank == 1 {
		stats.FirstOuts++
		return WinFirstOut
	}
	return WinScore
}

// calculateStreakBonus 计算连胜加成
func calculateStreakBonus(streak int) int {
	switch {
	case streak >= 10:
		return StreakBonus10
	case streak >= 5:
		return StreakBonus5
	case streak >= 3:
		return StreakBonus3
	default:
		return 0
	}
}

// RecordGameResult 记录单个玩家的对局结果
//
// 读改写在 WATCH 事务中完成，同名玩家的并发写入冲突时重试。
func (lm *LeaderboardManager) RecordGameResult(ctx context.Context, o Outcome) error {
	key := statsKey(o.PlayerName)
	record := func(tx *redis.Tx) error {
		stats, err := loadStats(ctx, tx, key)
		if err != nil {
			return err
		}
		now := lm.now()
		if stats == nil {
			stats = &PlayerStats{CreatedAt: now.Unix()}
		}

		stats.PlayerName = o.PlayerName
		stats.TotalGames++
		stats.LastPlayedAt = now.Unix()

		before := stats.Score
		scoreChange := updateWinLossStats(stats, o)
		scoreChange += calculateStreakBonus(stats.CurrentStreak)
		stats.Score = max(0, stats.Score+scoreChange)

		data, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			lm.updateBoards(ctx, pipe, stats, stats.Score-before, now)
			return nil
		})
		return err
	}

	for range maxRecordRetries {
		err := lm.redis.Watch(ctx, record, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("%s 的统计写入冲突次数过多: %w", o.PlayerName, redis.TxFailedErr)
}

// RecordGame 记录一整局的结果
func (lm *LeaderboardManager) RecordGame(ctx context.Context, outcomes []Outcome) error {
	var errs []error
	for _, o := range outcomes {
		if err := lm.RecordGameResult(ctx, o); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.PlayerName, err))
		}
	}
	return errors.Join(errs...)
}

// updateBoards 总榜记录总积分，日榜和周榜累计本周期内获得的积分
func (lm *LeaderboardManager) updateBoards(ctx context.Context, pipe redis.Pipeliner, stats *PlayerStats, delta int, now time.Time) {
	member := strings.ToLower(stats.PlayerName)
	pipe.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(stats.Score), Member: member})

	dailyKey := boardKey(PeriodDaily, now)
	pipe.ZIncrBy(ctx, dailyKey, float64(delta), member)
	pipe.Expire(ctx, dailyKey, 48*time.Hour)

	weeklyKey := boardKey(PeriodWeekly, now)
	pipe.ZIncrBy(ctx, weeklyKey, float64(delta), member)
	pipe.Expire(ctx, weeklyKey, 8*24*time.Hour)
}

// ParsePeriod 空字符串视为总榜
func ParsePeriod(s string) (Period, bool) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PeriodAll, true
	case PeriodAll, PeriodDaily, PeriodWeekly:
		return p, true
	default:
		return "", false
	}
}

func boardKey(p Period, now time.Time) string {
	switch p {
	case PeriodDaily:
		return dailyLeaderboard + now.Format("2006-01-02")
	case PeriodWeekly:
		year, week := now.ISOWeek()
		return fmt.Sprintf("%s%d-W%02d", weeklyLeaderboard, year, week)
	default:
		return leaderboardKey
	}
}

// GetLeaderboard 获取指定周期的排行榜（从高到低）
func (lm *LeaderboardManager) GetLeaderboard(ctx context.Context, period Period, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	key := boardKey(period, lm.now())
	results, err := lm.redis.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(results))
	for _, result := range results {
		member, ok := result.Member.(string)
		if !ok {
			continue
		}

		stats, err := lm.GetPlayerStats(ctx, member)
		if err != nil || stats == nil {
			continue
		}

		entries = append(entries, LeaderboardEntry{
			Rank:       len(entries) + 1,
			PlayerName: stats.PlayerName,
			Score:      int(result.Score),
			Wins:       stats.Wins,
			WinRate:    stats.WinRate(),
		})
	}

	return entries, nil
}

// GetPlayerRank 获取玩家排名，未上榜返回 -1
func (lm *LeaderboardManager) GetPlayerRank(ctx context.Context, playerName string) (int64, error) {
	rank, err := lm.redis.ZRevRank(ctx, leaderboardKey, strings.ToLower(playerName)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return -1, nil
		}
		return -1, err
	}
	return rank + 1, nil // Redis 排名从 0 开始
}
