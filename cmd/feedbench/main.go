package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/d60-Lab/sleepgraph/config"
	"github.com/d60-Lab/sleepgraph/internal/model"
	"github.com/d60-Lab/sleepgraph/internal/repository"
	"github.com/d60-Lab/sleepgraph/internal/service"
	"github.com/d60-Lab/sleepgraph/pkg/database"
	"github.com/d60-Lab/sleepgraph/pkg/pagination"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}

// feedbench: 造出一个关注 FOLLOWEES 个人的观察者，每个被关注者最近两周
// 随机打卡 RECORDS 条，然后压 FriendsFeed 查询看分位耗时。
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))

	FOLLOWEES := 200
	if s := os.Getenv("FOLLOWEES"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			FOLLOWEES = n
		}
	}
	RECORDS := 20
	if s := os.Getenv("RECORDS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			RECORDS = n
		}
	}
	QUERIES := 500
	if s := os.Getenv("QUERIES"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			QUERIES = n
		}
	}

	ctx := context.Background()
	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	sleepSvc := service.NewSleepService(db, userRepo, followRepo, cfg.Feed, cfg.Pagination)

	// seed: 观察者 + 被关注者 + 最近两周的打卡记录（一半落在窗口外）
	viewer := &model.User{Name: "viewer"}
	mustDo(userRepo.Create(ctx, viewer))

	now := time.Now()
	for i := 0; i < FOLLOWEES; i++ {
		u := &model.User{Name: fmt.Sprintf("sleeper_%04d", i)}
		mustDo(userRepo.Create(ctx, u))
		must(followRepo.Create(ctx, viewer.ID, u.ID))

		for j := 0; j < RECORDS; j++ {
			sleepAt := now.Add(-time.Duration(rand.Intn(14*24)) * time.Hour)
			_, _, err := sleepSvc.ClockToggle(ctx, u.ID, sleepAt)
			if err != nil {
				panic(err)
			}
			_, _, err = sleepSvc.ClockToggle(ctx, u.ID, sleepAt.Add(time.Duration(4+rand.Intn(6))*time.Hour))
			if err != nil {
				panic(err)
			}
		}
	}

	lat := make([]time.Duration, 0, QUERIES)
	t0 := time.Now()
	for i := 0; i < QUERIES; i++ {
		st := time.Now()
		_, _, err := sleepSvc.FriendsFeed(ctx, viewer.ID, now, pagination.Params{Page: 1 + i%5})
		if err != nil {
			panic(err)
		}
		lat = append(lat, time.Since(st))
	}
	total := time.Since(t0)

	pct := func(vs []time.Duration, p float64) time.Duration {
		if len(vs) == 0 {
			return 0
		}
		xs := append([]time.Duration(nil), vs...)
		sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
		k := int(math.Ceil(p*float64(len(xs)))) - 1
		if k < 0 {
			k = 0
		}
		if k >= len(xs) {
			k = len(xs) - 1
		}
		return xs[k]
	}

	fmt.Printf("FOLLOWEES=%d, RECORDS=%d, QUERIES=%d\n", FOLLOWEES, RECORDS, QUERIES)
	fmt.Printf("FriendsFeed total: %v, per query: %v, p50: %v, p95: %v, p99: %v\n",
		total, total/time.Duration(QUERIES), pct(lat, 0.50), pct(lat, 0.95), pct(lat, 0.99))
}
