package rule

// 轮转顺序相关的纯函数，counts[i] 为第 i 个座位的手牌数量。
// 所有搜索都最多绕牌桌一圈，找不到时明确返回 false。

// HolderCount 手中还有牌的玩家数量
func HolderCount(counts []int) int {
	n := 0
	for _, c := range counts {
		if c > 0 {
			n++
		}
	}
	return n
}

// FirstHolderFrom 从 start（含）开始顺时针找第一个有牌的座位
func FirstHolderFrom(counts []int, start int) (int, bool) {
	n := len(counts)
	if n == 0 {
		return -1, false
	}
	start = ((start % n) + n) % n
	for step := range n {
		idx := (start + step) % n
		if counts[idx] > 0 {
			return idx, true
		}
	}
	return -1, false
}

// DrawTarget 抽牌目标：actor 之后（不含 actor）第一个有牌的座位
func DrawTarget(counts []int, actor int) (int, bool) {
	n := len(counts)
	if actor < 0 || actor >= n {
		return -1, false
	}
	for step := 1; step < n; step++ {
		idx := (actor + step) % n
		if counts[idx] > 0 {
			return idx, true
		}
	}
	return -1, false
}

// NextActor 下一个行动者：current 之后第一个有牌的座位，绕一圈后才轮到 current 自己
func NextActor(counts []int, current int) (int, bool) {
	n := len(counts)
	if n == 0 {
		return -1, false
	}
	return FirstHolderFrom(counts, current+1)
}
